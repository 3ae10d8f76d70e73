package repository

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates an insert violated a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)
