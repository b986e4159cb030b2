package services

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrAccessDenied          = errors.New("access denied")
	ErrDuplicateMessage      = errors.New("duplicate message")
	ErrOwnerRemovalForbidden = errors.New("group owner cannot be removed")
	ErrValidation            = errors.New("validation failed")
	ErrEmailTaken            = errors.New("email already in use")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthenticated       = errors.New("unauthenticated")
)
