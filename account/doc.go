// Package account provides Redis-backed persistence for the per-account
// session and tab pointers and the token reverse index.
//
// # Record semantics
//
// Each account owns exactly one record, stored as a JSON value. Writers
// perform full-field overwrites of the session or tab dimension, never
// partial merges; every successful write publishes the resulting record on
// the account's watch channel so open subscriptions observe it.
//
// Session-mutating operations are serialized per account id within one
// process by a striped mutex. Across processes the store remains last-write
// wins: two racing logins both succeed and only the chronologically last
// session id stays valid, which the losing client discovers on its next
// validate or watch delivery.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Record] model.
// It does NOT verify passwords, evaluate roles, or decide forced logout —
// those responsibilities belong to the Engine and its watch wiring.
//
// # What this package must NOT do
//
//   - Import the quizAuth root package (no upward imports).
//   - Interpret quiz content stored elsewhere for the same account.
//   - Store plaintext passwords in [Record] fields.
package account
