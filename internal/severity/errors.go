package severity

import "errors"

// Domain errors for severity handling.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrOutOfRange is returned when a severity is not in 0-15.
	ErrOutOfRange = errors.New("severity: out of range (must be 0-15)")

	// ErrInvalidCount is returned when a counted override has a zero count.
	ErrInvalidCount = errors.New("severity: count must be at least 1")

	// ErrInvalidDigit is returned when a string is not a single hex digit.
	ErrInvalidDigit = errors.New("severity: not a single hex digit")

	// ErrUnknownName is returned when a severity name is not recognised.
	ErrUnknownName = errors.New("severity: unknown severity name")
)
