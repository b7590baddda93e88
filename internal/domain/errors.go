package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrChainMismatch  = errors.New("chain not allowed by configuration")
	ErrSigningFailed  = errors.New("signing failed")
)
