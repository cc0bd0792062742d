package requestor

import (
	"fmt"
	"runtime"
)

// PanicValue wraps a recovered panic value together with the goroutine
// stack trace captured at the point of the panic. The run engine installs
// a recover() at the launch boundary of every child requestor; a panic
// there is converted into a failed completion whose [Reason.Cause] is a
// *PanicValue (see [newThrowReason]).
type PanicValue struct {
	// Value is the original value passed to panic().
	Value any

	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

// Error returns a human-readable representation of the panic, including
// the value and the full stack trace.
func (p *PanicValue) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.Value, p.Stack)
}

// Unwrap returns nil. PanicValue does not wrap another error.
func (p *PanicValue) Unwrap() error { return nil }

func newPanicValue(v any) *PanicValue {
	// 8 KiB is enough for most stack traces. runtime.Stack truncates
	// gracefully if the buffer is too small.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicValue{
		Value: v,
		Stack: string(buf[:n]),
	}
}
