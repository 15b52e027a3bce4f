package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound  = errors.New("not found")
	ErrTransient = errors.New("transient store failure")
	ErrDuplicate = errors.New("duplicate record")
)
