package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rmendes/userhub/internal/auth"
	"github.com/rmendes/userhub/internal/domain/user"
	"github.com/rmendes/userhub/internal/jobs"
	"github.com/rmendes/userhub/internal/notifications"
	"github.com/rmendes/userhub/internal/security"
)

// CredentialService orchestrates login, registration and the password-reset
// round trip. It never holds a user record beyond one call.
type CredentialService struct {
	users  UserStore
	tokens *auth.Manager
	queue  JobEnqueuer
	log    *slog.Logger

	sessionScope auth.Scope
	resetScope   auth.Scope
}

func NewCredentialService(users UserStore, tokens *auth.Manager, queue JobEnqueuer, log *slog.Logger) *CredentialService {
	return &CredentialService{
		users:        users,
		tokens:       tokens,
		queue:        queue,
		log:          log,
		sessionScope: auth.SessionScope,
		resetScope:   auth.ResetScope,
	}
}

// WithScopes overrides the token scopes. Tests use this to mint
// short-lived or already-expired tokens.
func (s *CredentialService) WithScopes(session, reset auth.Scope) *CredentialService {
	s.sessionScope = session
	s.resetScope = reset
	return s
}

type RegisterInput struct {
	Email     string
	Name      string
	Password  string
	BirthDate *time.Time
}

// Login verifies credentials and returns a signed session token.
// Unknown email and wrong password both come back as ErrUnauthorized.
func (s *CredentialService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrUnauthorized
		}

		return "", err
	}

	ok, err := security.VerifyPassword(u.PasswordHash, password)

	if err != nil {
		// malformed stored digest; fatal for this record, never a 500 detail
		s.log.ErrorContext(ctx, "stored credential unreadable", "user_id", u.ID)
		return "", ErrUnauthorized
	}

	if !ok {
		return "", ErrUnauthorized
	}

	return s.tokens.Issue(u.ID, u.Name, u.Email, s.sessionScope)
}

// Register creates the user (role defaults to "user") and logs them straight in.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (user.User, string, error) {
	hash, err := security.HashPassword(in.Password)

	if err != nil {
		return user.User{}, "", err
	}

	u, err := s.users.Create(ctx, user.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         user.RoleUser,
		BirthDate:    in.BirthDate,
	})

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, "", ErrConflict
		}

		return user.User{}, "", err
	}

	token, err := s.tokens.Issue(u.ID, u.Name, u.Email, s.sessionScope)

	if err != nil {
		return user.User{}, "", err
	}

	return u, token, nil
}

// Forget issues a reset token and queues its delivery. The token only ever
// travels by email; the caller gets a bare success. A delivery failure is
// not surfaced either, only logged (fire-and-forget by contract).
//
// Note: an unknown email fails with ErrUnauthorized, so the response does
// reveal whether an address is registered. Kept on purpose.
func (s *CredentialService) Forget(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUnauthorized
		}

		return err
	}

	token, err := s.tokens.Issue(u.ID, u.Name, u.Email, s.resetScope)

	if err != nil {
		return err
	}

	payload, err := jobs.EncodePayload(jobs.JobSendPasswordReset, jobs.SendPasswordResetPayload{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Token:       token,
		RequestedAt: time.Now().UTC(),
	})

	if err != nil {
		return err
	}

	j, err := jobs.NewJob(jobs.JobSendPasswordReset, payload, time.Time{})

	if err != nil {
		return err
	}

	if err := s.queue.Enqueue(ctx, j); err != nil {
		s.log.ErrorContext(ctx, "reset email enqueue failed",
			"user_id", u.ID,
			"token", notifications.RedactToken(token),
			"err", err,
		)
	}

	return nil
}

// Reset redeems a reset token and installs the new password. Every
// verification failure folds into ErrInvalidToken. On success the user is
// logged straight in with a fresh session token.
//
// A redeemed token stays valid until its expiry; there is no server-side
// used-token set. Accepted as time-bounded risk.
func (s *CredentialService) Reset(ctx context.Context, newPassword, token string) (string, error) {
	claims, err := s.tokens.Verify(token, auth.Scope{
		Issuer:   s.resetScope.Issuer,
		Audience: s.resetScope.Audience,
	})

	if err != nil {
		return "", ErrInvalidToken
	}

	id, err := claims.SubjectID()

	if err != nil {
		return "", ErrInvalidToken
	}

	hash, err := security.HashPassword(newPassword)

	if err != nil {
		return "", err
	}

	u, err := s.users.UpdatePassword(ctx, id, hash)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// subject no longer resolves to a user
			return "", ErrInvalidToken
		}

		return "", err
	}

	return s.tokens.Issue(u.ID, u.Name, u.Email, s.sessionScope)
}
