package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNotReady     = errors.New("not ready")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrClosed       = errors.New("manager closed")
)
