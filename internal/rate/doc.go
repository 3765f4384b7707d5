// Package rate provides the Redis-backed fixed-window login limiter used by
// the quizAuth engine.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key
// prefixes:
//   - ql:  — login per-account
//   - qli: — login per-IP
//
// # What this package must NOT do
//
//   - Decide when limiting applies (the engine's config does).
//   - Be imported outside the quizAuth module.
package rate
