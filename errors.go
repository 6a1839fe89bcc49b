package bigtools

import (
	"errors"
	"fmt"

	"github.com/nvictus/bigtools/internal/bbierr"
	"github.com/nvictus/bigtools/internal/contract"
)

// Kind classifies the errors this package returns: I/O failures,
// malformed input, bad magic, broken chromosome tables, and
// unresolvable zoom levels. Contract violations raised by misuse of the
// streaming API have no Kind; they panic (see ContractViolation).
type Kind int

const (
	// KindIO wraps an underlying I/O failure from the sink or source.
	KindIO Kind = iota
	// KindInvalidInput covers sort-order violations, unknown chromosomes,
	// malformed numeric fields, and end <= start records.
	KindInvalidInput
	// KindNotBBI means the first four bytes matched neither magic nor its
	// byte-reversal.
	KindNotBBI
	// KindInvalidChroms means the on-disk chromosome tree was unreadable
	// or internally inconsistent.
	KindInvalidChroms
	// KindUnknownZoomLevel means no zoom level matches a requested
	// reduction exactly.
	KindUnknownZoomLevel
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInvalidInput:
		return "invalid input"
	case KindNotBBI:
		return "not a BBI file"
	case KindInvalidChroms:
		return "invalid chromosome table"
	case KindUnknownZoomLevel:
		return "unknown zoom level"
	default:
		return "unknown"
	}
}

// Error is the error type returned by this package for everything except
// contract violations, which panic instead (see ContractViolation).
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bbi: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("bbi: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) error {
	return &Error{Kind: k, Msg: msg}
}

func wrapErr(k Kind, msg string, err error) error {
	return &Error{Kind: k, Msg: msg, Err: err}
}

// ContractViolation is the panic value raised when the streaming grouper
// API is misused: advancing the grouper while a sub-stream still has
// unconsumed records. This is a programming error, not a runtime
// condition a caller can recover from meaningfully. It is defined in
// internal/contract (see that package's doc comment for why) and
// aliased here so callers can recover() and type-assert against a
// single public name.
type ContractViolation = contract.Violation

// classify maps an error surfaced by the internal pipeline packages onto
// the public Error/Kind pair. Pipeline packages (grouper, section, rtree,
// zoom) cannot import this package without an import cycle, so they
// report failures as *bbierr.InvalidInput or plain I/O errors and this
// function does the mapping at the boundary.
func classify(context string, err error) error {
	if err == nil {
		return nil
	}
	var inv *bbierr.InvalidInput
	if errors.As(err, &inv) {
		return wrapErr(KindInvalidInput, context, inv)
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return wrapErr(KindIO, context, err)
}
