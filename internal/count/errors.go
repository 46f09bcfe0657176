package count

import "errors"

// Validation errors: caller-correctable, rejected before any mutation.
var (
	ErrInvalidQuantity = errors.New("actual quantity must be non-negative")
	ErrInvalidSource   = errors.New("count source has no items")
)

// State errors: a transition was attempted from an illegal state. The
// session is left unchanged.
var (
	ErrNotFound      = errors.New("count or count item not found")
	ErrCountClosed   = errors.New("count is not in progress")
	ErrEmptyCount    = errors.New("count has no counted items")
	ErrNotCompleted  = errors.New("count is not completed")
	ErrAlreadyVoided = errors.New("count is already voided")
)
