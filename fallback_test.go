package requestor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFallback[V any](t *testing.T, requestors []Requestor[any, V], opts ...FallbackOption) Result[V] {
	t.Helper()
	done := make(chan Result[V], 1)
	Fallback(requestors, opts...)(func(r Result[V]) { done <- r }, nil)
	select {
	case r := <-done:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("Fallback did not complete")
		return Result[V]{}
	}
}

func TestFallbackTriesUntilSuccess(t *testing.T) {
	var secondRan atomic.Bool
	res := runFallback[int](t, []Requestor[any, int]{
		immediateFail[int](&Reason{Excuse: "first broke"}),
		func(recv Receiver[int], _ any) Cancellor {
			secondRan.Store(true)
			recv(Success(9))
			return nil
		},
	})
	require.True(t, res.Ok())
	v, _ := res.Value()
	assert.Equal(t, 9, v)
	assert.True(t, secondRan.Load())
}

func TestFallbackDoesNotTryAfterSuccess(t *testing.T) {
	var thirdRan atomic.Bool
	res := runFallback[int](t, []Requestor[any, int]{
		immediate(1),
		immediate(2),
		func(recv Receiver[int], _ any) Cancellor {
			thirdRan.Store(true)
			recv(Success(3))
			return nil
		},
	})
	require.True(t, res.Ok())
	v, _ := res.Value()
	assert.Equal(t, 1, v)
	assert.False(t, thirdRan.Load())
}

func TestFallbackAllFail(t *testing.T) {
	res := runFallback[int](t, []Requestor[any, int]{
		immediateFail[int](&Reason{Excuse: "a"}),
		immediateFail[int](&Reason{Excuse: "b"}),
	})
	require.False(t, res.Ok())
	reason, ok := AsReason(res.Reason())
	require.True(t, ok)
	assert.Equal(t, FactoryFallback, reason.Factory)
}

func TestFallbackEmptyIsConfigurationError(t *testing.T) {
	res := runFallback[int](t, nil)
	require.False(t, res.Ok())
	reason, ok := AsReason(res.Reason())
	require.True(t, ok)
	assert.Contains(t, reason.Excuse, "configuration error")
}

func TestFallbackSameMessageEveryAttempt(t *testing.T) {
	var seen []int
	res := runFallback[int](t, []Requestor[any, int]{
		func(recv Receiver[int], _ any) Cancellor {
			seen = append(seen, 1)
			recv(Failure[int](&Reason{Excuse: "x"}))
			return nil
		},
		func(recv Receiver[int], _ any) Cancellor {
			seen = append(seen, 2)
			recv(Success(5))
			return nil
		},
	})
	require.True(t, res.Ok())
	assert.Equal(t, []int{1, 2}, seen)
}

func TestFallbackTimeout(t *testing.T) {
	slow := func(recv Receiver[int], _ any) Cancellor {
		timer := time.AfterFunc(200*time.Millisecond, func() { recv(Success(1)) })
		return func(error) { timer.Stop() }
	}
	res := runFallback[int](t, []Requestor[any, int]{slow}, WithFallbackTimeLimit(10*time.Millisecond))
	require.False(t, res.Ok())
	reason, ok := AsReason(res.Reason())
	require.True(t, ok)
	assert.Contains(t, reason.Error(), "time limit")
}
