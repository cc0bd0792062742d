package requestor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestPropertyRaceSucceedsIffAnyChildSucceeds checks Race's outcome
// against a naive re-derivation from the generated success/failure
// pattern of its children, for every pattern rapid can construct.
func TestPropertyRaceSucceedsIffAnyChildSucceeds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outcomes := rapid.SliceOfN(rapid.Bool(), 1, 8).Draw(t, "outcomes")

		requestors := make([]Requestor[any, int], len(outcomes))
		anySucceeds := false
		for i, ok := range outcomes {
			i := i
			if ok {
				anySucceeds = true
				requestors[i] = immediate(i)
			} else {
				requestors[i] = immediateFail[int](&Reason{Excuse: "no"})
			}
		}

		done := make(chan Result[int], 1)
		Race(requestors)(func(r Result[int]) { done <- r }, nil)

		select {
		case r := <-done:
			require.Equal(t, anySucceeds, r.Ok())
		case <-time.After(time.Second):
			t.Fatal("Race never completed")
		}
	})
}

// TestPropertyParallelPreservesIndexOrder checks that Parallel's result
// slice always maps index i to the i-th necessity's own outcome,
// regardless of how many necessities are generated.
func TestPropertyParallelPreservesIndexOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.IntRange(0, 1000), 0, 10).Draw(t, "values")

		necessities := make([]Requestor[any, int], len(values))
		for i, v := range values {
			necessities[i] = immediate(v)
		}

		done := make(chan Result[[]Result[int]], 1)
		Parallel(necessities)(func(r Result[[]Result[int]]) { done <- r }, nil)

		select {
		case r := <-done:
			require.True(t, r.Ok())
			results, _ := r.Value()
			require.Len(t, results, len(values))
			for i, expected := range values {
				got, ok := results[i].Value()
				require.True(t, ok)
				require.Equal(t, expected, got)
			}
		case <-time.After(time.Second):
			t.Fatal("Parallel never completed")
		}
	})
}

// TestPropertyReceiverCalledExactlyOnce drives Race, Parallel, and
// Fallback with a random-sized set of immediately-resolving children
// and asserts the composite's own receiver is invoked exactly once,
// never zero and never more than once.
func TestPropertyReceiverCalledExactlyOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "n")
		kind := rapid.IntRange(0, 2).Draw(t, "kind")

		requestors := make([]Requestor[any, int], n)
		for i := range requestors {
			requestors[i] = immediate(i)
		}

		var calls atomic.Int32
		done := make(chan struct{}, 2)
		receiver := func(Result[int]) { calls.Add(1); done <- struct{}{} }
		receiverSlice := func(Result[[]Result[int]]) { calls.Add(1); done <- struct{}{} }

		switch kind {
		case 0:
			Race(requestors)(receiver, nil)
		case 1:
			Parallel(requestors)(receiverSlice, nil)
		case 2:
			Fallback(requestors)(receiver, nil)
		}

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("composite never completed")
		}
		require.Equal(t, int32(1), calls.Load())
	})
}

// TestPropertyCancelIsIdempotent checks that calling a composite's
// Cancellor any number of times, from any point after invocation, never
// panics and never invokes a child cancellor more than once.
func TestPropertyCancelIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "n")
		calls := rapid.IntRange(1, 5).Draw(t, "calls")

		requestors := make([]Requestor[any, int], n)
		counts := make([]atomicCounter, n)
		for i := range requestors {
			i := i
			requestors[i] = func(recv Receiver[int], _ any) Cancellor {
				return func(error) { counts[i].add() }
			}
		}

		cancel := Race(requestors)(func(Result[int]) {}, nil)
		require.NotPanics(t, func() {
			for i := 0; i < calls; i++ {
				cancel(nil)
			}
		})
		for i := range counts {
			require.LessOrEqual(t, counts[i].get(), 1)
		}
	})
}

type atomicCounter struct {
	n int
}

func (c *atomicCounter) add() { c.n++ }
func (c *atomicCounter) get() int { return c.n }
