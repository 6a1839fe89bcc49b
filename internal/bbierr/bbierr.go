// Package bbierr defines the low-level typed errors raised by the
// internal pipeline packages (grouper, source). The root
// package maps these onto its public Kind/Error types via errors.As, so
// that internal packages never need to import the root package (which
// would create an import cycle, since the root package imports them).
package bbierr

import "fmt"

// InvalidInput is returned for sort-order violations, unknown
// chromosomes, malformed numeric fields, and end <= start records.
type InvalidInput struct {
	Msg string
}

func (e *InvalidInput) Error() string { return e.Msg }

// Newf builds an *InvalidInput from a format string.
func Newf(format string, args ...interface{}) *InvalidInput {
	return &InvalidInput{Msg: fmt.Sprintf(format, args...)}
}
