package auth

import "errors"

var (
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrMissingSecret = errors.New("auth: signing secret is not configured")
	ErrInvalidInput  = errors.New("auth: invalid input")
)
