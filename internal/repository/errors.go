package repository

import "errors"

var (
	// ErrNotFound is returned by stores when no record matches a filter.
	ErrNotFound = errors.New("record not found")
	// ErrLockHeld is returned when another harvest run holds the run lock.
	ErrLockHeld = errors.New("run lock is held by another harvest")
)
