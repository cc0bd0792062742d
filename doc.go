// Package requestor composes asynchronous work out of continuation-passing
// units called requestors, without committing to any particular
// concurrency primitive at the leaf level.
//
// # Core Vocabulary
//
// A [Requestor] performs one unit of work and reports its outcome to a
// [Receiver] exactly once. The outcome is a [Result]: a success value, a
// failure [*Reason], or — for a requestor that never runs — neither. A
// Requestor may return a [Cancellor] to let its caller ask for early
// abort; cancellors must be idempotent.
//
//	var fetchUser requestor.Requestor[string, User] = func(recv requestor.Receiver[User], id string) requestor.Cancellor {
//		ctx, cancel := context.WithCancel(context.Background())
//		go func() {
//			u, err := lookup(ctx, id)
//			if err != nil {
//				recv(requestor.Failure[User](&requestor.Reason{Excuse: "lookup failed", Cause: err}))
//				return
//			}
//			recv(requestor.Success(u))
//		}()
//		return func(error) { cancel() }
//	}
//
// # Composition
//
// Four operators combine requestors into larger requestors:
//
//   - [Parallel] runs necessities and optionals concurrently; it fails if
//     any necessity fails, and otherwise reports one [Result] per child.
//   - [Race] runs requestors concurrently and reports the first success,
//     cancelling the rest.
//   - [Sequence] runs requestors one at a time, threading each success
//     into the next requestor's message.
//   - [Fallback] tries requestors one at a time against the same
//     message, stopping at the first success.
//
// Every operator accepts a [ParallelConfig]-style configuration (via
// functional options) for a time limit and an optional [Observer] hook;
// [Parallel] and [Race] also take a throttle. Every operator is itself a
// [Requestor]: they nest freely.
//
// # Failure
//
// Failures are carried as [*Reason] values, never as panics past a
// requestor's launch boundary — a child that panics before reporting is
// treated as a failed completion whose cause is a [*PanicValue]. Use
// [AsReason] and [CauseOf] to inspect a failure's origin.
//
// # Adapters
//
// The [requestor/adapters] subpackage bridges requestor to more familiar
// Go idioms: [context.Context]-based functions, a shared concurrency
// budget via [golang.org/x/sync/semaphore], retry with backoff, and
// integration with [golang.org/x/sync/errgroup].
package requestor
