package notifications

import "context"

type SendPasswordResetInput struct {
	Email string
	Name  string
	Token string
}

// Notifier delivers a password-reset token to an address. The credential
// service never sees delivery failures; the worker owns retries.
type Notifier interface {
	SendPasswordReset(ctx context.Context, input SendPasswordResetInput) error
}

// RedactToken keeps a short prefix for correlation in logs without ever
// writing the full signed token anywhere.
func RedactToken(token string) string {
	const keep = 8

	if len(token) <= keep {
		return "..."
	}

	return token[:keep] + "..."
}
