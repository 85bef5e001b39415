package usecase

import "errors"

// Sentinel errors for use case layer
var (
	ErrEmptyQuery   = errors.New("query must not be empty")
	ErrInvalidScope = errors.New("invalid tenant scope")
	ErrNoProvider   = errors.New("no LLM provider configured")
)
