package catalog

import "errors"

var (
	// ErrNotFound means the requested catalog record does not exist.
	ErrNotFound = errors.New("catalog record not found")

	// ErrInsufficientStock rejects an adjustment that would drive the
	// on-hand quantity below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrLockContention means the per-item lock could not be acquired.
	ErrLockContention = errors.New("system busy, please try again later (lock)")
)
