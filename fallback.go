package requestor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Fallback tries requestors one at a time against the same message,
// stopping at the first success. Unlike [Sequence], no value is
// threaded between attempts: every attempt sees the same message. If an
// attempt fails, the next is tried; if every attempt fails, the
// composite fails with a reason wrapping the last failure observed. An
// empty requestor list is a configuration error.
//
// Like [Sequence], Fallback is built directly on each requestor rather
// than the shared run engine, since the next attempt is only started
// once its predecessor has failed.
func Fallback[M, V any](requestors []Requestor[M, V], opts ...FallbackOption) Requestor[M, V] {
	return func(receiver Receiver[V], message M) Cancellor {
		var cfg FallbackConfig
		for _, opt := range opts {
			opt(&cfg)
		}

		if reason := validateTimeLimit(FactoryFallback, cfg.TimeLimit); reason != nil {
			receiver(Failure[V](reason))
			return nil
		}
		if reason := validateRequestors(FactoryFallback, "requestor", requestors); reason != nil {
			receiver(Failure[V](reason))
			return nil
		}
		if len(requestors) == 0 {
			receiver(Failure[V](newConfigReason(FactoryFallback, "at least one requestor is required", 0)))
			return nil
		}

		f := &fallbackRun[M, V]{cfg: cfg, receiver: receiver, requestors: requestors, message: message}
		if cfg.TimeLimit > 0 {
			f.timer = time.AfterFunc(cfg.TimeLimit, f.onTimeout)
		}
		f.attempt(0)
		return f.cancel
	}
}

type fallbackRun[M, V any] struct {
	cfg        FallbackConfig
	receiver   Receiver[V]
	requestors []Requestor[M, V]
	message    M

	mu        sync.Mutex
	index     int
	active    Cancellor
	finished  bool
	cancelled atomic.Bool
	timer     *time.Timer
}

func (f *fallbackRun[M, V]) attempt(i int) {
	notify(f.cfg.Observer, Event{Factory: FactoryFallback, Index: i, Kind: EventLaunched})

	var cancellor Cancellor
	var panicVal *PanicValue
	func() {
		defer func() {
			if v := recover(); v != nil {
				panicVal = newPanicValue(v)
			}
		}()
		cancellor = f.requestors[i](func(res Result[V]) {
			f.onAttemptComplete(i, res)
		}, f.message)
	}()

	if panicVal != nil {
		f.onAttemptComplete(i, Result[V]{reason: newThrowReason(FactoryFallback, i, panicVal)})
		return
	}

	f.mu.Lock()
	if f.cancelled.Load() || f.finished {
		f.mu.Unlock()
		safeCancel(cancellor, nil)
		return
	}
	f.active = cancellor
	f.mu.Unlock()
}

func (f *fallbackRun[M, V]) onAttemptComplete(i int, res Result[V]) {
	f.mu.Lock()
	if f.cancelled.Load() || f.finished || i != f.index {
		f.mu.Unlock()
		return
	}
	f.index++
	f.active = nil
	f.mu.Unlock()

	if res.Ok() {
		notify(f.cfg.Observer, Event{Factory: FactoryFallback, Index: i, Kind: EventSucceeded})
		f.finish(res)
		return
	}

	notify(f.cfg.Observer, Event{Factory: FactoryFallback, Index: i, Kind: EventFailed, Reason: res.Reason()})
	if i+1 == len(f.requestors) {
		f.finish(Failure[V](newAllFailedReason(FactoryFallback, res.Reason())))
		return
	}
	f.attempt(i + 1)
}

func (f *fallbackRun[M, V]) onTimeout() {
	f.mu.Lock()
	if f.cancelled.Load() || f.finished {
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	notify(f.cfg.Observer, Event{Factory: FactoryFallback, Index: -1, Kind: EventTimedOut})
	f.finish(Failure[V](newTimeoutReason(FactoryFallback, f.cfg.TimeLimit.Milliseconds())))
}

func (f *fallbackRun[M, V]) finish(res Result[V]) {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return
	}
	f.finished = true
	f.mu.Unlock()

	var cause error
	if reason := res.Reason(); reason != nil {
		cause = reason
	}
	f.cancel(cause)
	f.receiver(res)
}

func (f *fallbackRun[M, V]) cancel(reason error) {
	if !f.cancelled.CompareAndSwap(false, true) {
		return
	}
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	c := f.active
	f.active = nil
	f.mu.Unlock()
	safeCancel(c, reason)
}
