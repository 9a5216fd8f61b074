package storage

import "errors"

// Sentinel errors for backend operations.
var (
	ErrNotFound    = errors.New("entry not found")
	ErrReadFailed  = errors.New("read failed")
	ErrWriteFailed = errors.New("write failed")
	ErrInvalidName = errors.New("invalid name")
)
