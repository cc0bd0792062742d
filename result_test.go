package requestor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSuccess(t *testing.T) {
	r := Success(42)
	assert.True(t, r.Ok())
	assert.False(t, r.Absent())
	v, ok := r.Value()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Nil(t, r.Reason())
}

func TestResultFailure(t *testing.T) {
	reason := &Reason{Excuse: "broke"}
	r := Failure[int](reason)
	assert.False(t, r.Ok())
	assert.False(t, r.Absent())
	_, ok := r.Value()
	assert.False(t, ok)
	assert.Same(t, reason, r.Reason())
}

func TestResultAbsent(t *testing.T) {
	var r Result[int]
	assert.True(t, r.Absent())
	assert.False(t, r.Ok())
	assert.Nil(t, r.Reason())
}

func TestResultZeroSuccessValueStillDistinguishable(t *testing.T) {
	r := Success(0)
	assert.True(t, r.Ok())
	assert.False(t, r.Absent())
}

func TestFailureRequiresReason(t *testing.T) {
	require.Panics(t, func() {
		Failure[int](nil)
	})
}
