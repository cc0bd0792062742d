package requestor

// Race runs every requestor concurrently against the same message and
// reports the first success. Every other requestor is cancelled the
// moment a winner is found; a loser's own outcome, if it arrives at all,
// never reaches the composite's receiver.
//
// If every requestor fails, the composite fails with a reason wrapping
// the last failure observed. An empty requestor list is itself a
// configuration error: there is nothing to race.
func Race[M, V any](requestors []Requestor[M, V], opts ...RaceOption) Requestor[M, V] {
	return func(receiver Receiver[V], message M) Cancellor {
		var cfg RaceConfig
		for _, opt := range opts {
			opt(&cfg)
		}

		if reason := validateThrottle(FactoryRace, cfg.Throttle); reason != nil {
			receiver(Failure[V](reason))
			return nil
		}
		if reason := validateTimeLimit(FactoryRace, cfg.TimeLimit); reason != nil {
			receiver(Failure[V](reason))
			return nil
		}
		if reason := validateRequestors(FactoryRace, "requestor", requestors); reason != nil {
			receiver(Failure[V](reason))
			return nil
		}
		if len(requestors) == 0 {
			receiver(Failure[V](newConfigReason(FactoryRace, "at least one requestor is required", 0)))
			return nil
		}

		r := &raceRun[M, V]{
			cfg:       cfg,
			receiver:  receiver,
			remaining: len(requestors),
		}

		launchers := make([]childLauncher, len(requestors))
		for idx, req := range requestors {
			idx, req := idx, req
			launchers[idx] = func(recv func(Result[any])) Cancellor {
				notify(r.cfg.Observer, Event{Factory: FactoryRace, Index: idx, Kind: EventLaunched})
				return req(func(res Result[V]) {
					recv(eraseResult(res))
				}, message)
			}
		}

		eng := newEngine(engineConfig{
			factory:   FactoryRace,
			launchers: launchers,
			throttle:  cfg.Throttle,
			timeLimit: cfg.TimeLimit,
			action:    r.onChildComplete,
			timeout:   r.onTimeout,
		})
		r.cancel = eng.cancel
		eng.start()
		return r.cancel
	}
}

type raceRun[M, V any] struct {
	cfg       RaceConfig
	receiver  Receiver[V]
	remaining int
	lastFail  *Reason
	finished  bool
	cancel    Cancellor
}

func (r *raceRun[M, V]) onChildComplete(idx int, res Result[any]) {
	if r.finished {
		return
	}
	v := unerase[V](res)
	r.remaining--

	if v.Ok() {
		notify(r.cfg.Observer, Event{Factory: FactoryRace, Index: idx, Kind: EventSucceeded})
		r.finish(v)
		return
	}

	notify(r.cfg.Observer, Event{Factory: FactoryRace, Index: idx, Kind: EventFailed, Reason: v.Reason()})
	r.lastFail = v.Reason()
	if r.remaining == 0 {
		r.finish(Failure[V](newAllFailedReason(FactoryRace, r.lastFail)))
	}
}

func (r *raceRun[M, V]) onTimeout() {
	if r.finished {
		return
	}
	notify(r.cfg.Observer, Event{Factory: FactoryRace, Index: -1, Kind: EventTimedOut})
	r.finish(Failure[V](newTimeoutReason(FactoryRace, r.cfg.TimeLimit.Milliseconds())))
}

func (r *raceRun[M, V]) finish(res Result[V]) {
	if r.finished {
		return
	}
	r.finished = true
	var cause error
	if reason := res.Reason(); reason != nil {
		cause = reason
	} else {
		cause = newLoserReason(FactoryRace)
	}
	r.cancel(cause)
	r.receiver(res)
}
