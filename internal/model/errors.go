package model

import "errors"

// Sentinel error kinds shared by the analytics packages. Callers match them
// with errors.Is; the wrapping message carries the detail.
var (
	// ErrInvalidConfig marks a caller bug: unknown aggregation operator,
	// group-by key, KPI name or phase-selection policy.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDataIntegrity marks input that violates a loader contract, e.g. a
	// single-match file that spans several match ids.
	ErrDataIntegrity = errors.New("data integrity")
)
