// Package adapters bridges [requestor.Requestor] to more familiar Go
// concurrency idioms: context-based functions, a shared concurrency
// budget, retry with backoff, and errgroup integration.
package adapters

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/devnw/requestor"
)

// FromContext lifts a context-based function into a
// [requestor.Requestor]. Each invocation derives a cancellable child of
// the message it is given; the returned Cancellor cancels that child
// context, and fn is expected to observe ctx.Done the way any
// well-behaved context-based function would.
func FromContext[V any](fn func(context.Context) (V, error)) requestor.Requestor[context.Context, V] {
	return func(recv requestor.Receiver[V], parent context.Context) requestor.Cancellor {
		ctx, cancel := context.WithCancel(parent)
		go func() {
			v, err := fn(ctx)
			if err != nil {
				recv(requestor.Failure[V](&requestor.Reason{
					Factory: requestor.FactoryLeaf,
					Excuse:  "context function failed",
					Cause:   err,
				}))
				return
			}
			recv(requestor.Success(v))
		}()
		return func(error) { cancel() }
	}
}

// Throttled wraps inner so that it only runs while holding a slot in
// sem, sharing that budget with anything else acquiring the same
// semaphore. Unlike [requestor.ParallelConfig.Throttle], which bounds
// concurrency within a single composite, sem can be shared across
// unrelated composites and even unrelated requestor trees.
//
// If message carries no context (M is not context.Context), acquisition
// uses context.Background and therefore cannot be interrupted by
// cancelling the wrapped requestor before its turn arrives; cancelling
// the returned Cancellor before the slot is acquired still prevents
// inner from ever running.
func Throttled[M, V any](inner requestor.Requestor[M, V], sem *semaphore.Weighted) requestor.Requestor[M, V] {
	return func(recv requestor.Receiver[V], message M) requestor.Cancellor {
		parent := context.Background()
		if c, ok := any(message).(context.Context); ok {
			parent = c
		}
		ctx, cancelWait := context.WithCancel(parent)
		gr := &groupRun[V]{}

		go func() {
			if err := sem.Acquire(ctx, 1); err != nil {
				recv(requestor.Failure[V](&requestor.Reason{
					Factory: requestor.FactoryLeaf,
					Excuse:  "throttle wait cancelled",
					Cause:   err,
				}))
				return
			}
			var release sync.Once
			gr.setActive(inner(func(res requestor.Result[V]) {
				release.Do(func() { sem.Release(1) })
				recv(res)
			}, message))
		}()

		return func(reason error) {
			cancelWait()
			gr.cancel(reason)
		}
	}
}

// Retry wraps inner so that a failure is retried up to attempts times
// (attempts total tries, not attempts retries), waiting backoff(n)
// after the (n+1)-th attempt fails and before the next one starts
// (backoff(0) precedes the second attempt). Retry gives up and reports the last
// failure once attempts is exhausted. Cancelling a Retry mid-attempt
// cancels the in-flight attempt and prevents any further retry.
func Retry[M, V any](inner requestor.Requestor[M, V], attempts int, backoff func(n int) time.Duration) requestor.Requestor[M, V] {
	if attempts < 1 {
		attempts = 1
	}
	return func(recv requestor.Receiver[V], message M) requestor.Cancellor {
		r := &retryRun[M, V]{inner: inner, attempts: attempts, backoff: backoff, recv: recv, message: message}
		r.attempt(0)
		return r.cancel
	}
}

type retryRun[M, V any] struct {
	inner    requestor.Requestor[M, V]
	attempts int
	backoff  func(n int) time.Duration
	recv     requestor.Receiver[V]
	message  M

	mu        sync.Mutex
	cancelled bool
	active    requestor.Cancellor
	timer     *time.Timer
}

func (r *retryRun[M, V]) attempt(n int) {
	completed := false
	c := r.inner(func(res requestor.Result[V]) {
		r.mu.Lock()
		completed = true
		r.mu.Unlock()
		if res.Ok() || n+1 >= r.attempts {
			r.recv(res)
			return
		}

		r.mu.Lock()
		cancelled := r.cancelled
		r.mu.Unlock()
		if cancelled {
			return
		}

		delay := time.Duration(0)
		if r.backoff != nil {
			delay = r.backoff(n)
		}
		if delay <= 0 {
			r.attempt(n + 1)
			return
		}

		r.mu.Lock()
		r.timer = time.AfterFunc(delay, func() { r.attempt(n + 1) })
		r.mu.Unlock()
	}, r.message)

	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		if c != nil {
			c(nil)
		}
		return
	}
	if !completed {
		r.active = c
	}
	r.mu.Unlock()
}

func (r *retryRun[M, V]) cancel(reason error) {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	r.cancelled = true
	if r.timer != nil {
		r.timer.Stop()
	}
	c := r.active
	r.mu.Unlock()

	if c != nil {
		c(reason)
	}
}

// Group runs inner under g, the same way [errgroup.Group.Go] runs a
// plain function: the requestor's outcome is folded into g's error via
// [errgroup.Group.Go] so callers using an errgroup for unrelated work
// can wait on requestor-based work with the same [errgroup.Group.Wait].
// The requestor's own success value is delivered to recv as usual;
// Group only mirrors failure into the group's error.
func Group[M, V any](g *errgroup.Group, inner requestor.Requestor[M, V]) requestor.Requestor[M, V] {
	return func(recv requestor.Receiver[V], message M) requestor.Cancellor {
		gr := &groupRun[V]{}
		g.Go(func() error {
			resultCh := make(chan requestor.Result[V], 1)
			gr.setActive(inner(func(res requestor.Result[V]) { resultCh <- res }, message))
			res := <-resultCh
			recv(res)
			if !res.Ok() {
				return res.Reason()
			}
			return nil
		})
		return gr.cancel
	}
}

// groupRun makes the Cancellor returned by [Group] idempotent: it may
// be invoked any number of times, from any goroutine, both before and
// after inner's own Cancellor has been captured.
type groupRun[V any] struct {
	mu        sync.Mutex
	cancelled bool
	reason    error
	active    requestor.Cancellor
}

func (gr *groupRun[V]) setActive(c requestor.Cancellor) {
	gr.mu.Lock()
	cancelled, reason := gr.cancelled, gr.reason
	if !cancelled {
		gr.active = c
	}
	gr.mu.Unlock()

	if cancelled && c != nil {
		c(reason)
	}
}

func (gr *groupRun[V]) cancel(reason error) {
	gr.mu.Lock()
	if gr.cancelled {
		gr.mu.Unlock()
		return
	}
	gr.cancelled = true
	gr.reason = reason
	c := gr.active
	gr.mu.Unlock()

	if c != nil {
		c(reason)
	}
}
