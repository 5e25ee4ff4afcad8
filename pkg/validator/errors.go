package validator

import "errors"

var (
	ErrEmptyURL         = errors.New("URL cannot be empty")
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrMissingScheme    = errors.New("URL must be absolute")
	ErrInvalidHost      = errors.New("URL must have a host")
	ErrEmptyShortCode   = errors.New("short code cannot be empty")
	ErrInvalidShortCode = errors.New("short code must be alphanumeric")
)
