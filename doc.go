// Package quizAuth provides account session coordination for the quiz
// portal: single-session-per-account enforcement with Redis-backed session
// and tab registries, near-real-time invalidation push to superseded
// clients, and transparent upgrade of legacy plaintext credentials.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// quizAuth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, AuditEvent, MetricsSnapshot, etc.). Record
// persistence lives in package account, change delivery in package watch,
// digests in package password; id generation and rate limiting live under
// internal/ and are never exported. The client-side packages clientcache
// and tablock run on the device, not the server, and talk to the engine
// only through its public API.
//
// # What this package must NOT do
//
//   - Own credential storage ([CredentialProvider] does; the engine only
//     consumes it and writes back digest upgrades).
//   - Interpret quiz content, scores, or leaderboard data.
//   - Guarantee exclusive sessions under cross-process races: the registry
//     is last-write-wins, and the losing client converges through its
//     watch subscription rather than through a lock.
package quizAuth
