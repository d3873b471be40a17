package report

import "errors"

// Sentinel error kinds for this package.
var (
	ErrWriteReport = errors.New("failed to write report")
)
