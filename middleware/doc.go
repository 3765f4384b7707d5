// Package middleware exposes HTTP middleware built on top of
// quizAuth.Engine session rehydration.
//
// [Guard] reads the Authorization bearer token, resolves it through
// Engine.Rehydrate, and injects the resulting session into the request
// context for [SessionFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// the Engine.
//
// # What this package must NOT do
//
//   - Access Redis (the Engine handles I/O).
//   - Cache rehydration results across requests; every request consults
//     the registry so superseded sessions are rejected promptly.
package middleware
