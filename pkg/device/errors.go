package device

import "errors"

var (
	// ErrNotFound indicates a device or relay record was not found
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrConfig indicates a malformed device record or schedule
	ErrConfig = errors.New("config error")

	// ErrValidation indicates a record payload failed schema validation
	ErrValidation = errors.New("validation error")
)
