// Package clientcache persists the last known session on the client device
// so a reload can skip re-login: account snapshot, bearer token, session id,
// tab id, and a persisted-at timestamp.
//
// The cache expires on its own 30-day policy, independent of the server's
// 7-day session horizon, and every successful Load slides the window
// forward. Under daily use the cache therefore never expires locally even
// though the server may already consider the session stale — rehydration
// against the registry is what settles it. This divergence is deliberate
// portal behavior and is kept configurable rather than unified.
//
// Storage is a local SQLite file (one row per browser profile analog), plus
// the in-memory [TabHandle] standing in for tab-scoped storage.
package clientcache
