package user

import "time"

const birthDateLayout = "2006-01-02"

type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name" binding:"required,min=2"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"omitempty,oneof=admin user"`
	BirthDate string `json:"birthDate" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateUserRequest is the full replacement shape (PUT). Every field required.
type UpdateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name" binding:"required,min=2"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required,oneof=admin user"`
	BirthDate string `json:"birthDate" binding:"omitempty,datetime=2006-01-02"`
}

// PatchUserRequest is the partial shape (PATCH). Nil pointers are untouched fields.
type PatchUserRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	Name      *string `json:"name" binding:"omitempty,min=2"`
	Password  *string `json:"password" binding:"omitempty,min=8"`
	Role      *string `json:"role" binding:"omitempty,oneof=admin user"`
	BirthDate *string `json:"birthDate" binding:"omitempty,datetime=2006-01-02"`
}

// ParseBirthDate converts the wire format (YYYY-MM-DD) into a time pointer.
// An empty string maps to nil rather than the zero time.
func ParseBirthDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(birthDateLayout, s)

	if err != nil {
		return nil, err
	}

	return &t, nil
}
