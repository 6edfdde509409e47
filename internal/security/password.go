package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrCorruptCredential means the stored digest could not be parsed at all.
// A wrong password is not an error, only a false verification.
var ErrCorruptCredential = errors.New("corrupt password digest")

// HashPassword hashes a plain text password with bcrypt.
// Each call salts freshly; the salt and cost travel inside the digest.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword compares a stored digest with a plaintext candidate.
// Returns (false, nil) on a mismatch and (false, ErrCorruptCredential)
// when the digest itself is malformed.
func VerifyPassword(digest, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))

	if err == nil {
		return true, nil
	}

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, fmt.Errorf("%w: %v", ErrCorruptCredential, err)
}
