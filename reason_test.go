package requestor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonErrorIncludesCause(t *testing.T) {
	cause := errors.New("boom")
	r := &Reason{Factory: FactoryRace, Excuse: "all requestors failed", Cause: cause}
	assert.Contains(t, r.Error(), "race")
	assert.Contains(t, r.Error(), "all requestors failed")
	assert.Contains(t, r.Error(), "boom")
}

func TestReasonErrorWithoutCause(t *testing.T) {
	r := &Reason{Factory: FactoryParallel, Excuse: "necessity failed"}
	assert.Equal(t, "parallel: necessity failed", r.Error())
}

func TestAsReasonUnwraps(t *testing.T) {
	r := &Reason{Excuse: "x"}
	wrapped := errors.New("context: " + r.Error())
	_, ok := AsReason(wrapped)
	assert.False(t, ok)

	found, ok := AsReason(fmt.Errorf("context: %w", r))
	assert.True(t, ok)
	assert.Same(t, r, found)

	found, ok = AsReason(r)
	assert.True(t, ok)
	assert.Same(t, r, found)

	found, ok = AsReason(nil)
	assert.False(t, ok)
	assert.Nil(t, found)
}

func TestCauseOfUnwrapsReason(t *testing.T) {
	cause := errors.New("root")
	r := &Reason{Excuse: "x", Cause: cause}
	assert.Equal(t, cause, CauseOf(r))
	assert.Nil(t, CauseOf(nil))

	plain := errors.New("plain")
	assert.Equal(t, plain, CauseOf(plain))
}

func TestFactoryNameString(t *testing.T) {
	assert.Equal(t, "parallel", FactoryParallel.String())
	assert.Equal(t, "race", FactoryRace.String())
	assert.Equal(t, "sequence", FactorySequence.String())
	assert.Equal(t, "fallback", FactoryFallback.String())
}
