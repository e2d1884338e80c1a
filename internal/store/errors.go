package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrResultExists is returned when a request already has a result.
	ErrResultExists = errors.New("result already exists")
	// ErrInvalidTransition is returned when a status change would move backwards
	// or leave a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicate is returned on a unique-key conflict.
	ErrDuplicate = errors.New("duplicate")
)
