package route

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidCriteria = errors.New("invalid route criteria")
)
