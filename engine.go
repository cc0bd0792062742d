package requestor

import (
	"sync"
	"sync/atomic"
	"time"
)

// childLauncher starts one child and reports its outcome to recv exactly
// once. It is the type-erased shape every operator reduces its typed
// [Requestor] children to before handing them to [newEngine]; erasing the
// value type here keeps the engine itself free of type parameters, the
// same way the teacher's Spawner/TaskFunc pair is untyped and typed
// results are recovered one layer up (see [Parallel], [Race]).
type childLauncher func(recv func(Result[any])) Cancellor

// engineConfig is everything [newEngine] needs to drive a set of
// children. It is the engine's half of the contract described in
// SPEC_FULL.md §4.1; the other half — deciding what an index's
// completion means for the composite — lives in the operator-supplied
// action callback.
type engineConfig struct {
	// factory tags reasons synthesized by the engine itself (currently
	// only child-panic reasons) with the producing operator.
	factory FactoryName

	launchers []childLauncher

	// action is invoked exactly once per child completion, including
	// synchronous panics during launch, serialized relative to other
	// action and timeout calls via actionMu.
	action func(index int, res Result[any])

	// timeout is invoked at most once, if timeLimit elapses before the
	// engine is cancelled. May be nil.
	timeout func()

	// timeLimit is the duration after which timeout fires. Zero or
	// negative means no limit.
	timeLimit time.Duration

	// throttle caps the number of children launched at once. Zero or
	// negative means unbounded.
	throttle int
}

// engine drives a fixed set of children for a single composite
// invocation. One engine is created per call to a composite Requestor;
// it is never reused.
type engine struct {
	cfg engineConfig

	// mu guards bookkeeping: per-child cancellor slots, the launch
	// counter, and the timer handle. It is never held while calling into
	// user code (action, timeout, or a child's launcher/cancellor).
	mu         sync.Mutex
	cancellors []Cancellor
	completed  []bool
	nextLaunch int
	total      int
	timer      *time.Timer

	// cancelled is the one-shot cancellation latch. Set exactly once via
	// CompareAndSwap, mirroring the teacher's Pool.closed / spawner.open
	// idiom (see DESIGN.md).
	cancelled atomic.Bool

	// actionMu serializes calls into cfg.action and cfg.timeout so the
	// caller-supplied callback is always a small, single-threaded
	// critical section, per SPEC_FULL.md §4.1 and §5. It is distinct
	// from mu so that an action callback is free to call the engine's
	// own cancel (which only needs mu) without deadlocking.
	actionMu sync.Mutex
}

// newEngine constructs an engine ready to drive cfg.launchers but does
// not launch anything yet. Callers MUST capture e.cancel before calling
// e.start: start begins spawning goroutines immediately, and a child
// that completes before the caller has captured the Cancellor would
// otherwise race the capture. Because e.cancel is a bound method value
// on a fully-initialized engine, capturing it before start needs no
// extra synchronization — goroutine creation inside start is itself a
// happens-before edge for everything the caller did first.
func newEngine(cfg engineConfig) *engine {
	total := len(cfg.launchers)
	return &engine{
		cfg:        cfg,
		cancellors: make([]Cancellor, total),
		completed:  make([]bool, total),
		total:      total,
	}
}

// start launches e's children under its throttle and time limit. It is
// a no-op beyond returning immediately if there are no launchers, so
// operators that need an empty-list short-circuit (§4.2–§4.5) must
// still handle it themselves; start alone will neither succeed nor fail
// the composite.
func (e *engine) start() {
	if e.total == 0 {
		return
	}

	limit := e.total
	if e.cfg.throttle > 0 && e.cfg.throttle < e.total {
		limit = e.cfg.throttle
	}

	e.mu.Lock()
	e.nextLaunch = limit
	e.mu.Unlock()

	for i := 0; i < limit; i++ {
		e.launch(i)
	}

	if e.cfg.timeLimit > 0 {
		e.timer = time.AfterFunc(e.cfg.timeLimit, e.onTimeout)
	}
}

// launch starts child i on its own goroutine. A goroutine is itself a
// fresh stack frame, so this alone satisfies the spec's "deferred,
// yielding launch" requirement without a manual trampoline: a chain of
// purely synchronous children never recurses the calling stack. The go
// statements are issued in input order, but the goroutines may begin in
// any order, so a later child can be launched, and can complete, before
// an earlier one; a child whose goroutine begins after the engine was
// cancelled is never launched.
func (e *engine) launch(i int) {
	go func() {
		e.mu.Lock()
		if e.cancelled.Load() || e.completed[i] {
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()

		var cancellor Cancellor
		var panicVal *PanicValue
		func() {
			defer func() {
				if v := recover(); v != nil {
					panicVal = newPanicValue(v)
				}
			}()
			cancellor = e.cfg.launchers[i](func(res Result[any]) {
				e.onComplete(i, res)
			})
		}()

		if panicVal != nil {
			e.onComplete(i, Result[any]{reason: newThrowReason(e.cfg.factory, i, panicVal)})
			return
		}

		e.mu.Lock()
		if e.cancelled.Load() || e.completed[i] {
			e.mu.Unlock()
			safeCancel(cancellor, nil)
			return
		}
		e.cancellors[i] = cancellor
		e.mu.Unlock()
	}()
}

// onComplete is the single entry point for a child's outcome, whether it
// arrived via its receiver or was synthesized from a launch-time panic.
// It enforces at-most-once per child, starts the next throttled launch,
// and invokes the operator's action under actionMu.
func (e *engine) onComplete(i int, res Result[any]) {
	e.mu.Lock()
	if e.cancelled.Load() || e.completed[i] {
		e.mu.Unlock()
		return
	}
	e.completed[i] = true
	e.cancellors[i] = nil

	next := -1
	if e.nextLaunch < e.total {
		next = e.nextLaunch
		e.nextLaunch++
	}
	e.mu.Unlock()

	if next != -1 {
		e.launch(next)
	}

	e.actionMu.Lock()
	e.cfg.action(i, res)
	e.actionMu.Unlock()
}

// onTimeout fires cfg.timeout exactly once (time.AfterFunc's own
// guarantee), unless the engine was already cancelled — closing the race
// between a firing timer and a concurrent cancellation requires checking
// cancelled both before and after acquiring actionMu.
func (e *engine) onTimeout() {
	if e.cancelled.Load() {
		return
	}
	e.actionMu.Lock()
	defer e.actionMu.Unlock()
	if e.cancelled.Load() || e.cfg.timeout == nil {
		return
	}
	e.cfg.timeout()
}

// cancelChild fires a single child's cancellor without touching the
// rest of the engine. It is used by operators that need to give up on
// one sibling (e.g. an optional requestor in [Parallel]) while leaving
// the others, and the composite itself, running. A no-op if the engine
// as a whole is already cancelled or the child has already completed.
func (e *engine) cancelChild(i int, reason error) {
	e.mu.Lock()
	if e.cancelled.Load() || e.completed[i] {
		e.mu.Unlock()
		return
	}
	c := e.cancellors[i]
	e.cancellors[i] = nil
	e.completed[i] = true
	e.mu.Unlock()
	safeCancel(c, reason)
}

// cancel disarms the timer and fires every still-armed child cancellor,
// in list order, swallowing panics from misbehaving cancellors. It is
// idempotent: only the first call (observed via CompareAndSwap) has any
// effect, and subsequent completions from cancelled children become
// no-ops via the cancelled check in onComplete.
func (e *engine) cancel(reason error) {
	if !e.cancelled.CompareAndSwap(false, true) {
		return
	}

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	toCancel := make([]Cancellor, len(e.cancellors))
	copy(toCancel, e.cancellors)
	for i := range e.cancellors {
		e.cancellors[i] = nil
	}
	e.mu.Unlock()

	for _, c := range toCancel {
		safeCancel(c, reason)
	}
}
