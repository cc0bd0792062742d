package requestor

import (
	"errors"
	"fmt"
)

// FactoryName identifies which operator produced a [Reason]. It is a
// closed enum, carried only for diagnostics — callers should not branch
// on it to implement retry or recovery policy; use [Reason.Evidence] or
// [errors.As] on [Reason.Cause] for that.
type FactoryName int

const (
	// FactoryParallel tags reasons produced by [Parallel].
	FactoryParallel FactoryName = iota
	// FactoryRace tags reasons produced by [Race].
	FactoryRace
	// FactorySequence tags reasons produced by [Sequence].
	FactorySequence
	// FactoryFallback tags reasons produced by [Fallback].
	FactoryFallback
	// FactoryLeaf tags reasons produced by a leaf requestor rather than
	// one of the four composition operators, e.g. an adapter in
	// requestor/adapters.
	FactoryLeaf
)

func (f FactoryName) String() string {
	switch f {
	case FactoryParallel:
		return "parallel"
	case FactoryRace:
		return "race"
	case FactorySequence:
		return "sequence"
	case FactoryFallback:
		return "fallback"
	case FactoryLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Reason is a structured failure description: which operator produced it,
// a short human-readable excuse, an optional diagnostic payload, and an
// optional underlying cause. Reasons are values carried through
// [Receiver] calls, never thrown as panics past a requestor's launch.
//
// *Reason implements error, so it composes with errors.Is, errors.As and
// errors.Unwrap.
type Reason struct {
	Factory  FactoryName
	Excuse   string
	Evidence any
	Cause    error
}

func (r *Reason) Error() string {
	if r.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", r.Factory, r.Excuse, r.Cause)
	}
	return fmt.Sprintf("%s: %s", r.Factory, r.Excuse)
}

// Unwrap returns r's underlying cause, or nil if there is none.
func (r *Reason) Unwrap() error {
	return r.Cause
}

// AsReason reports whether err (or any error in its chain) is a *Reason,
// returning it if so.
func AsReason(err error) (*Reason, bool) {
	if err == nil {
		return nil, false
	}
	var r *Reason
	return r, errors.As(err, &r)
}

// CauseOf unwraps the first *Reason in err's chain and returns its
// underlying cause. If err is not a *Reason, err is returned unchanged.
// Returns nil if err is nil.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}
	if r, ok := AsReason(err); ok {
		return r.Cause
	}
	return err
}

func newConfigReason(factory FactoryName, excuse string, evidence any) *Reason {
	return &Reason{Factory: factory, Excuse: "configuration error: " + excuse, Evidence: evidence}
}

func newTimeoutReason(factory FactoryName, timeLimitMillis int64) *Reason {
	return &Reason{Factory: factory, Excuse: "time limit elapsed", Evidence: timeLimitMillis}
}

func newThrowReason(factory FactoryName, index int, cause error) *Reason {
	return &Reason{Factory: factory, Excuse: "requestor panicked", Evidence: index, Cause: cause}
}

func newCancelReason(factory FactoryName, cause error) *Reason {
	excuse := "cancelled"
	if cause != nil {
		excuse = cause.Error()
	}
	return &Reason{Factory: factory, Excuse: excuse, Cause: cause}
}

func newNecessityFailedReason(factory FactoryName, index int, cause *Reason) *Reason {
	return &Reason{Factory: factory, Excuse: "necessity failed", Evidence: index, Cause: cause}
}

func newAllFailedReason(factory FactoryName, cause *Reason) *Reason {
	return &Reason{Factory: factory, Excuse: "all requestors failed", Cause: cause}
}

// newLoserReason is the cancellation reason delivered to every sibling
// that loses a composite: a [Race] loser still running once another
// requestor has won, or an optional [Parallel] still running once every
// necessity has succeeded under [SkipOptionalsIfTimeRemains].
func newLoserReason(factory FactoryName) *Reason {
	return &Reason{Factory: factory, Excuse: "race loser"}
}
