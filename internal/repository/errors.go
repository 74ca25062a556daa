package repository

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrSerialization = errors.New("serialization failure")
	// ErrInvalidReference is a write that points at a row that does not exist.
	ErrInvalidReference = errors.New("invalid reference")
)
