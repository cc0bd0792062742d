package requestor

// Parallel runs necessities and cfg's optionals concurrently against the
// same message, and reports one [Result] per requestor, necessities
// first, in input order, followed by optionals in input order.
//
// The composite succeeds once every necessity has succeeded. If any
// necessity fails, the composite fails immediately with a reason
// wrapping that necessity's, and every still-running sibling (necessity
// or optional) is cancelled. Optional failures never fail the
// composite; a failed optional's outcome is simply recorded.
//
// What happens to optionals still running once every necessity has
// succeeded is governed by [ParallelConfig.TimeOption]:
//
//   - [SkipOptionalsIfTimeRemains] (the default): the composite finishes
//     as soon as the necessities do, cancelling any still-running
//     optionals. Their slots in the result hold an absent [Result]
//     (see [Result.Absent]).
//   - [TryOptionalsIfTimeRemains]: the composite waits for every
//     optional to finish too, up to [ParallelConfig.TimeLimit]. If the
//     limit elapses first, the composite finishes with whichever
//     optionals had completed by then.
//   - [RequireNecessities]: the time limit applies only to optionals.
//     Necessities run to completion regardless of the limit; once the
//     limit elapses, still-running optionals are cancelled but the
//     composite does not finish until the necessities do.
//
// If the time limit elapses while a necessity is still running under
// [SkipOptionalsIfTimeRemains] or [TryOptionalsIfTimeRemains], the
// composite fails with a timeout reason and every sibling is cancelled.
//
// With no necessities, optionals are the entire set being run: there is
// nothing for them to out-survive, so [ParallelConfig.TimeOption] is
// treated as [TryOptionalsIfTimeRemains] regardless of what was
// configured, and every optional runs to completion (or until the time
// limit, if any).
func Parallel[M, V any](necessities []Requestor[M, V], opts ...ParallelOption[M, V]) Requestor[M, []Result[V]] {
	return func(receiver Receiver[[]Result[V]], message M) Cancellor {
		var cfg ParallelConfig[M, V]
		for _, opt := range opts {
			opt(&cfg)
		}

		if reason := validateThrottle(FactoryParallel, cfg.Throttle); reason != nil {
			receiver(Failure[[]Result[V]](reason))
			return nil
		}
		if reason := validateTimeLimit(FactoryParallel, cfg.TimeLimit); reason != nil {
			receiver(Failure[[]Result[V]](reason))
			return nil
		}
		if !cfg.TimeOption.valid() {
			receiver(Failure[[]Result[V]](newConfigReason(FactoryParallel, "unrecognized TimeOption", cfg.TimeOption)))
			return nil
		}
		if reason := validateRequestors(FactoryParallel, "necessity", necessities); reason != nil {
			receiver(Failure[[]Result[V]](reason))
			return nil
		}
		if reason := validateRequestors(FactoryParallel, "optional", cfg.Optionals); reason != nil {
			receiver(Failure[[]Result[V]](reason))
			return nil
		}

		numNec := len(necessities)
		numOpt := len(cfg.Optionals)
		total := numNec + numOpt

		// With no necessities, optionals are the whole set: there is
		// nothing for them to finish "before", so SkipOptionalsIfTimeRemains
		// would otherwise let the first optional's completion cancel every
		// other optional still running. Treat them as if the caller had
		// asked for TryOptionalsIfTimeRemains instead.
		if numNec == 0 && numOpt > 0 {
			cfg.TimeOption = TryOptionalsIfTimeRemains
		}
		// With no optionals the TimeOption has nothing to govern.
		if numNec > 0 && numOpt == 0 {
			cfg.TimeOption = SkipOptionalsIfTimeRemains
		}

		if total == 0 {
			receiver(Success[[]Result[V]](nil))
			return nil
		}

		p := &parallelRun[M, V]{
			cfg:          cfg,
			receiver:     receiver,
			results:      make([]Result[V], total),
			numNec:       numNec,
			remainingNec: numNec,
			remainingOpt: numOpt,
		}

		launchers := make([]childLauncher, total)
		for idx, req := range necessities {
			launchers[idx] = p.launcher(idx, true, req, message)
		}
		for j, req := range cfg.Optionals {
			launchers[numNec+j] = p.launcher(numNec+j, false, req, message)
		}

		eng := newEngine(engineConfig{
			factory:   FactoryParallel,
			launchers: launchers,
			throttle:  cfg.Throttle,
			timeLimit: cfg.TimeLimit,
			action:    p.onChildComplete,
			timeout:   p.onTimeout,
		})
		p.cancel = eng.cancel
		p.cancelChild = eng.cancelChild
		eng.start()
		return p.cancel
	}
}

// parallelRun holds the mutable state of a single Parallel invocation.
// Every method is only ever called from within the engine's
// actionMu-serialized section (onChildComplete, onTimeout), so it needs
// no locking of its own.
type parallelRun[M, V any] struct {
	cfg      ParallelConfig[M, V]
	receiver Receiver[[]Result[V]]
	results  []Result[V]

	numNec           int
	remainingNec     int
	remainingOpt     int
	optionalsGivenUp bool

	finished    bool
	cancel      Cancellor
	cancelChild func(int, error)
}

func (p *parallelRun[M, V]) launcher(idx int, necessity bool, req Requestor[M, V], message M) childLauncher {
	return func(recv func(Result[any])) Cancellor {
		notify(p.cfg.Observer, Event{Factory: FactoryParallel, Index: idx, Kind: EventLaunched})
		return req(func(r Result[V]) {
			recv(eraseResult(r))
		}, message)
	}
}

func (p *parallelRun[M, V]) onChildComplete(idx int, res Result[any]) {
	if p.finished {
		return
	}
	r := unerase[V](res)
	p.results[idx] = r
	necessity := idx < p.numNec

	if r.Ok() {
		notify(p.cfg.Observer, Event{Factory: FactoryParallel, Index: idx, Kind: EventSucceeded})
		if necessity {
			p.remainingNec--
		} else {
			p.remainingOpt--
		}
		p.checkDone()
		return
	}

	notify(p.cfg.Observer, Event{Factory: FactoryParallel, Index: idx, Kind: EventFailed, Reason: r.Reason()})
	if necessity {
		p.finish(Failure[[]Result[V]](newNecessityFailedReason(FactoryParallel, idx, r.Reason())))
		return
	}
	p.remainingOpt--
	p.checkDone()
}

// checkDone finishes the composite once every necessity has succeeded
// and, depending on TimeOption, every optional has either succeeded,
// failed, or been given up on.
func (p *parallelRun[M, V]) checkDone() {
	if p.remainingNec > 0 {
		return
	}
	switch p.cfg.TimeOption {
	case SkipOptionalsIfTimeRemains:
		p.finish(Success(p.snapshot()))
	default: // TryOptionalsIfTimeRemains, RequireNecessities
		if p.remainingOpt == 0 || p.optionalsGivenUp {
			p.finish(Success(p.snapshot()))
		}
	}
}

func (p *parallelRun[M, V]) onTimeout() {
	if p.finished {
		return
	}
	notify(p.cfg.Observer, Event{Factory: FactoryParallel, Index: -1, Kind: EventTimedOut})

	switch p.cfg.TimeOption {
	case SkipOptionalsIfTimeRemains, TryOptionalsIfTimeRemains:
		if p.remainingNec > 0 {
			p.finish(Failure[[]Result[V]](newTimeoutReason(FactoryParallel, p.cfg.TimeLimit.Milliseconds())))
			return
		}
		p.finish(Success(p.snapshot()))
	case RequireNecessities:
		p.giveUpOptionals()
		if p.remainingNec == 0 {
			p.finish(Success(p.snapshot()))
		}
	}
}

// giveUpOptionals cancels every still-running optional individually,
// without cancelling necessities or tearing down the whole engine, and
// marks the composite as no longer waiting on optionals.
func (p *parallelRun[M, V]) giveUpOptionals() {
	p.optionalsGivenUp = true
	reason := newCancelReason(FactoryParallel, nil)
	for j := 0; j < len(p.results)-p.numNec; j++ {
		idx := p.numNec + j
		if !p.results[idx].Absent() {
			continue
		}
		notify(p.cfg.Observer, Event{Factory: FactoryParallel, Index: idx, Kind: EventCancelled, Reason: reason})
		p.cancelChild(idx, reason)
	}
}

func (p *parallelRun[M, V]) finish(res Result[[]Result[V]]) {
	if p.finished {
		return
	}
	p.finished = true
	var cause error
	if reason := res.Reason(); reason != nil {
		cause = reason
	} else {
		cause = newLoserReason(FactoryParallel)
	}
	p.cancel(cause)
	p.receiver(res)
}

func (p *parallelRun[M, V]) snapshot() []Result[V] {
	out := make([]Result[V], len(p.results))
	copy(out, p.results)
	return out
}
