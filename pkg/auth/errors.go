package auth

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrDuplicateRegistration = errors.New("username already registered")
	ErrInvalidUsername       = errors.New("invalid username")
	ErrPasswordRequired      = errors.New("password is required")
	ErrPasswordTooLong       = errors.New("password exceeds 72 bytes")
	ErrFailedToHashPassword  = errors.New("failed to hash password")
	ErrTooManyAttempts       = errors.New("too many failed login attempts")
)
