package domain

import "errors"

const (
	MaxEmailLen    = 254
	MinPasswordLen = 8
)

var (
	ErrEmailEmpty       = errors.New("email empty")
	ErrEmailTooLong     = errors.New("email too long")
	ErrPasswordTooShort = errors.New("password too short")
)

type UserID string

type User struct {
	ID    UserID `json:"id"`
	Email string `json:"email"`
}

// ValidateCredentials checks the raw signup input before hashing.
func ValidateCredentials(email, password string) error {
	if len(email) == 0 {
		return ErrEmailEmpty
	}
	if len(email) > MaxEmailLen {
		return ErrEmailTooLong
	}
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}
