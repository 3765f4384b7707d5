// Package watch implements the change-notification channel over Redis
// pub/sub: one subscription per account record, delivering the full current
// record immediately on subscribe and again after every mutation.
//
// # Delivery semantics
//
// Best-effort and coalescing. A subscriber that is offline across several
// mutations observes only the latest state once its connection is restored;
// intermediate invalidations are not replayed. This is acceptable because
// only the current session id matters to consumers.
//
// Connection loss triggers an exponential-backoff resubscribe; each
// successful resubscribe re-delivers the current record so the subscriber
// catches up without a replay log.
//
// # What this package must NOT do
//
//   - Decide forced logout (the subscriber compares session ids).
//   - Mutate account records.
package watch
