package jobs

import "time"

// SendPasswordResetPayload carries everything the worker needs to deliver
// a reset email. The token is the signed reset token itself; it is written
// to the jobs table but must never appear in logs.
type SendPasswordResetPayload struct {
	UserID      int64     `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Token       string    `json:"token"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"` // optional: correlation
}
