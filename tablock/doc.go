// Package tablock is a best-effort, same-device cross-tab exclusivity
// heuristic: a shared local lock row renewed by a heartbeat, with a timeout
// that lets a crashed owner's lock lapse.
//
// It is observational only. A tab that finds the lock held elsewhere is
// told so through its callback and nothing more happens — the lock is not
// wired to any logout path and must never be treated as a source of truth.
// The whole mechanism is optional and can be left disabled.
package tablock
