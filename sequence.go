package requestor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Sequence runs steps one at a time against the same T, threading each
// step's success value into the next step's message. The first step
// receives message; the last step's success value becomes the
// composite's own success value. An empty steps list succeeds
// immediately with message unchanged.
//
// If any step fails, the composite fails immediately with a reason
// wrapping that step's, and the remaining steps never run. Sequence is
// built directly on each step's Requestor rather than on the shared run
// engine: unlike [Parallel] and [Race], a step's message is not known
// until its predecessor completes, so there is nothing the engine's
// upfront launcher list could represent.
func Sequence[T any](steps []Requestor[T, T], opts ...SequenceOption) Requestor[T, T] {
	return func(receiver Receiver[T], message T) Cancellor {
		var cfg SequenceConfig
		for _, opt := range opts {
			opt(&cfg)
		}

		if reason := validateTimeLimit(FactorySequence, cfg.TimeLimit); reason != nil {
			receiver(Failure[T](reason))
			return nil
		}
		if reason := validateRequestors(FactorySequence, "step", steps); reason != nil {
			receiver(Failure[T](reason))
			return nil
		}
		if len(steps) == 0 {
			receiver(Success(message))
			return nil
		}

		s := &sequenceRun[T]{cfg: cfg, receiver: receiver, steps: steps}
		if cfg.TimeLimit > 0 {
			s.timer = time.AfterFunc(cfg.TimeLimit, s.onTimeout)
		}
		s.runStep(0, message)
		return s.cancel
	}
}

type sequenceRun[T any] struct {
	cfg      SequenceConfig
	receiver Receiver[T]
	steps    []Requestor[T, T]

	mu        sync.Mutex
	index     int
	active    Cancellor
	finished  bool
	cancelled atomic.Bool
	timer     *time.Timer
}

func (s *sequenceRun[T]) runStep(i int, message T) {
	notify(s.cfg.Observer, Event{Factory: FactorySequence, Index: i, Kind: EventLaunched})

	var cancellor Cancellor
	var panicVal *PanicValue
	func() {
		defer func() {
			if v := recover(); v != nil {
				panicVal = newPanicValue(v)
			}
		}()
		cancellor = s.steps[i](func(res Result[T]) {
			s.onStepComplete(i, res)
		}, message)
	}()

	if panicVal != nil {
		s.onStepComplete(i, Result[T]{reason: newThrowReason(FactorySequence, i, panicVal)})
		return
	}

	s.mu.Lock()
	if s.cancelled.Load() || s.finished {
		s.mu.Unlock()
		safeCancel(cancellor, nil)
		return
	}
	s.active = cancellor
	s.mu.Unlock()
}

func (s *sequenceRun[T]) onStepComplete(i int, res Result[T]) {
	s.mu.Lock()
	if s.cancelled.Load() || s.finished || i != s.index {
		s.mu.Unlock()
		return
	}
	s.index++
	s.active = nil
	s.mu.Unlock()

	if res.Ok() {
		notify(s.cfg.Observer, Event{Factory: FactorySequence, Index: i, Kind: EventSucceeded})
		value, _ := res.Value()
		if i+1 == len(s.steps) {
			s.finish(Success(value))
			return
		}
		s.runStep(i+1, value)
		return
	}

	notify(s.cfg.Observer, Event{Factory: FactorySequence, Index: i, Kind: EventFailed, Reason: res.Reason()})
	s.finish(Failure[T](newNecessityFailedReason(FactorySequence, i, res.Reason())))
}

func (s *sequenceRun[T]) onTimeout() {
	s.mu.Lock()
	if s.cancelled.Load() || s.finished {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	notify(s.cfg.Observer, Event{Factory: FactorySequence, Index: -1, Kind: EventTimedOut})
	s.finish(Failure[T](newTimeoutReason(FactorySequence, s.cfg.TimeLimit.Milliseconds())))
}

func (s *sequenceRun[T]) finish(res Result[T]) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.mu.Unlock()

	var cause error
	if reason := res.Reason(); reason != nil {
		cause = reason
	}
	s.cancel(cause)
	s.receiver(res)
}

// cancel is idempotent and stops both the timer and whichever step is
// currently active. It is returned directly as the composite's
// Cancellor, the same way [Parallel] and [Race] expose their run
// engine's cancel unchanged.
func (s *sequenceRun[T]) cancel(reason error) {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	c := s.active
	s.active = nil
	s.mu.Unlock()
	safeCancel(c, reason)
}
