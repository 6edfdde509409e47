package service

import "errors"

var (
	// ErrUnauthorized covers bad login credentials and forget() on an
	// unknown email. Absent user and hash mismatch are indistinguishable.
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrInvalidToken folds every reset-token verification failure into one
	// kind (bad signature, expired, wrong scope, unresolvable subject) so the
	// response does not leak which check failed.
	ErrInvalidToken = errors.New("invalid reset token")

	// ErrConflict means the email is already registered.
	ErrConflict = errors.New("email already in use")

	// ErrNotFound means the target user id does not exist.
	ErrNotFound = errors.New("user not found")
)
