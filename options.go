package requestor

import "time"

// TimeOption governs how [Parallel] treats optional requestors once a
// time limit is configured. It is a closed set; passing any other value
// to [ParallelConfig.TimeOption] is a configuration error.
type TimeOption int

const (
	// SkipOptionalsIfTimeRemains finishes as soon as every necessity
	// completes, cancelling any still-running optionals. If the time
	// limit elapses before the necessities finish, the composite fails.
	SkipOptionalsIfTimeRemains TimeOption = iota

	// TryOptionalsIfTimeRemains lets optionals keep running, sharing the
	// same time limit as the necessities, until the limit elapses.
	TryOptionalsIfTimeRemains

	// RequireNecessities applies the time limit only to optionals;
	// necessities may run indefinitely. Until the limit elapses,
	// optionals keep running even after the necessities finish; once it
	// has elapsed, still-running optionals are cancelled and the
	// remaining behavior matches SkipOptionalsIfTimeRemains.
	RequireNecessities
)

func (o TimeOption) valid() bool {
	switch o {
	case SkipOptionalsIfTimeRemains, TryOptionalsIfTimeRemains, RequireNecessities:
		return true
	default:
		return false
	}
}

func (o TimeOption) String() string {
	switch o {
	case SkipOptionalsIfTimeRemains:
		return "skip-optionals-if-time-remains"
	case TryOptionalsIfTimeRemains:
		return "try-optionals-if-time-remains"
	case RequireNecessities:
		return "require-necessities"
	default:
		return "unknown"
	}
}

// ParallelConfig configures [Parallel]. The zero value runs only the
// necessities, with no optionals, no time limit, and no throttle.
type ParallelConfig[M, V any] struct {
	// Optionals are requestors whose failure does not fail the
	// composite; see [Parallel] for the necessity/optional split.
	Optionals []Requestor[M, V]

	// TimeLimit bounds how long optionals (and, depending on TimeOption,
	// necessities) may run. Zero means no limit.
	TimeLimit time.Duration

	// TimeOption decides how the time limit interacts with optionals.
	// Ignored when there are no optionals.
	TimeOption TimeOption

	// Throttle caps the number of requestors in flight at once. Zero
	// means unbounded.
	Throttle int

	// Observer, if non-nil, receives lifecycle events for every child
	// and for the composite itself. See [Observer].
	Observer Observer
}

// ParallelOption configures a [ParallelConfig] via [Parallel]'s
// functional-option parameter.
type ParallelOption[M, V any] func(*ParallelConfig[M, V])

// WithOptionals sets the optional requestors run alongside the
// necessities passed to [Parallel].
func WithOptionals[M, V any](optionals ...Requestor[M, V]) ParallelOption[M, V] {
	return func(c *ParallelConfig[M, V]) {
		c.Optionals = optionals
	}
}

// WithParallelTimeLimit sets [ParallelConfig.TimeLimit].
func WithParallelTimeLimit[M, V any](d time.Duration) ParallelOption[M, V] {
	return func(c *ParallelConfig[M, V]) {
		c.TimeLimit = d
	}
}

// WithTimeOption sets [ParallelConfig.TimeOption].
func WithTimeOption[M, V any](o TimeOption) ParallelOption[M, V] {
	return func(c *ParallelConfig[M, V]) {
		c.TimeOption = o
	}
}

// WithParallelThrottle sets [ParallelConfig.Throttle].
func WithParallelThrottle[M, V any](n int) ParallelOption[M, V] {
	return func(c *ParallelConfig[M, V]) {
		c.Throttle = n
	}
}

// WithParallelObserver sets [ParallelConfig.Observer].
func WithParallelObserver[M, V any](obs Observer) ParallelOption[M, V] {
	return func(c *ParallelConfig[M, V]) {
		c.Observer = obs
	}
}

// RaceConfig configures [Race]. The zero value has no time limit and no
// throttle (all requestors are launched at once).
type RaceConfig struct {
	TimeLimit time.Duration
	Throttle  int
	Observer  Observer
}

// RaceOption configures a [RaceConfig] via [Race]'s functional-option
// parameter.
type RaceOption func(*RaceConfig)

// WithRaceTimeLimit sets [RaceConfig.TimeLimit].
func WithRaceTimeLimit(d time.Duration) RaceOption {
	return func(c *RaceConfig) { c.TimeLimit = d }
}

// WithRaceThrottle sets [RaceConfig.Throttle].
func WithRaceThrottle(n int) RaceOption {
	return func(c *RaceConfig) { c.Throttle = n }
}

// WithRaceObserver sets [RaceConfig.Observer].
func WithRaceObserver(obs Observer) RaceOption {
	return func(c *RaceConfig) { c.Observer = obs }
}

// SequenceConfig configures [Sequence]. The zero value has no time
// limit.
type SequenceConfig struct {
	TimeLimit time.Duration
	Observer  Observer
}

// SequenceOption configures a [SequenceConfig] via [Sequence]'s
// functional-option parameter.
type SequenceOption func(*SequenceConfig)

// WithSequenceTimeLimit sets [SequenceConfig.TimeLimit].
func WithSequenceTimeLimit(d time.Duration) SequenceOption {
	return func(c *SequenceConfig) { c.TimeLimit = d }
}

// WithSequenceObserver sets [SequenceConfig.Observer].
func WithSequenceObserver(obs Observer) SequenceOption {
	return func(c *SequenceConfig) { c.Observer = obs }
}

// FallbackConfig configures [Fallback]. The zero value has no time
// limit.
type FallbackConfig struct {
	TimeLimit time.Duration
	Observer  Observer
}

// FallbackOption configures a [FallbackConfig] via [Fallback]'s
// functional-option parameter.
type FallbackOption func(*FallbackConfig)

// WithFallbackTimeLimit sets [FallbackConfig.TimeLimit].
func WithFallbackTimeLimit(d time.Duration) FallbackOption {
	return func(c *FallbackConfig) { c.TimeLimit = d }
}

// WithFallbackObserver sets [FallbackConfig.Observer].
func WithFallbackObserver(obs Observer) FallbackOption {
	return func(c *FallbackConfig) { c.Observer = obs }
}
