package service

import "errors"

var (
	// ErrValidation wraps every rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing, invalid or expired token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserAlreadyExists is returned when the username or email is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
)
