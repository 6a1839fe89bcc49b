// Package contract defines the panic value raised by the grouper's
// single-active-sub-stream idiom when it is violated. It lives in its own
// package, independent of both the root package and internal/grouper, so
// that neither needs to import the other to share the panic type.
package contract

import "fmt"

// Violation is panicked when a caller advances the chromosome grouper
// while the previous chromosome's sub-stream still has unread records, or
// otherwise breaks the "exactly one sub-stream is live at a time" rule.
type Violation struct {
	Msg string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("contract violation: %s", v.Msg)
}

// Raise panics with a Violation built from the given message.
func Raise(format string, args ...interface{}) {
	panic(&Violation{Msg: fmt.Sprintf(format, args...)})
}
