package user

import (
	"errors"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Store-level sentinels shared by the postgres and memory repos.
var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	BirthDate    *time.Time `json:"birthDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// Patch carries the fields a partial update may change. Nil means "leave as is".
// PasswordHash must already be hashed by the caller.
type Patch struct {
	Email        *string
	Name         *string
	PasswordHash *string
	Role         *string
	BirthDate    *time.Time
}

func (p Patch) IsEmpty() bool {
	return p.Email == nil && p.Name == nil && p.PasswordHash == nil && p.Role == nil && p.BirthDate == nil
}
