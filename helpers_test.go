package requestor

import (
	"sync/atomic"
	"time"
)

// immediate returns a Requestor that succeeds synchronously with v.
func immediate[V any](v V) Requestor[any, V] {
	return func(recv Receiver[V], _ any) Cancellor {
		recv(Success(v))
		return nil
	}
}

// immediateFail returns a Requestor that fails synchronously with reason.
func immediateFail[V any](reason *Reason) Requestor[any, V] {
	return func(recv Receiver[V], _ any) Cancellor {
		recv(Failure[V](reason))
		return nil
	}
}

// delayed returns a Requestor that succeeds with v after d, cancellable
// via the returned Cancellor.
func delayed[V any](d time.Duration, v V) Requestor[any, V] {
	return func(recv Receiver[V], _ any) Cancellor {
		timer := time.AfterFunc(d, func() { recv(Success(v)) })
		return func(error) { timer.Stop() }
	}
}

// delayedFail returns a Requestor that fails with reason after d.
func delayedFail[V any](d time.Duration, reason *Reason) Requestor[any, V] {
	return func(recv Receiver[V], _ any) Cancellor {
		timer := time.AfterFunc(d, func() { recv(Failure[V](reason)) })
		return func(error) { timer.Stop() }
	}
}

// blockUntilCancelled returns a Requestor that never completes on its
// own; cancelling it reports a failure built from the cancellation
// reason. cancelled is set once the Cancellor is invoked.
func blockUntilCancelled[V any](cancelled *atomic.Bool) Requestor[any, V] {
	return func(recv Receiver[V], _ any) Cancellor {
		return func(reason error) {
			if !cancelled.CompareAndSwap(false, true) {
				return
			}
			r := &Reason{Excuse: "cancelled"}
			if reason != nil {
				r.Cause = reason
			}
			recv(Failure[V](r))
		}
	}
}

// panicking returns a Requestor that panics with v as soon as it runs.
func panicking[V any](v any) Requestor[any, V] {
	return func(_ Receiver[V], _ any) Cancellor {
		panic(v)
	}
}

// countingCancel wraps inner, incrementing count every time the
// returned Cancellor is invoked.
func countingCancel[M, V any](inner Requestor[M, V], count *atomic.Int32) Requestor[M, V] {
	return func(recv Receiver[V], m M) Cancellor {
		c := inner(recv, m)
		return func(reason error) {
			count.Add(1)
			if c != nil {
				c(reason)
			}
		}
	}
}

// capturingCancel wraps inner, storing the reason passed to the
// returned Cancellor's first invocation into captured.
func capturingCancel[M, V any](inner Requestor[M, V], captured *error) Requestor[M, V] {
	return func(recv Receiver[V], m M) Cancellor {
		c := inner(recv, m)
		return func(reason error) {
			*captured = reason
			if c != nil {
				c(reason)
			}
		}
	}
}
