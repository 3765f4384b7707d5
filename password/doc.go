// Package password provides the credential digests used by the quizAuth
// engine: a deterministic SHA-256 hex digest compatible with the portal's
// legacy records, and an argon2id option for deployments that want a salted
// KDF going forward.
//
// # Legacy migration
//
// Stored values that fail [LooksHashed] are treated as legacy plaintext.
// The engine compares them directly and, on a successful login, rewrites
// the stored value as a digest in the same operation that establishes the
// session. Verify never returns an error for a plain mismatch.
//
// # What this package must NOT do
//
//   - Persist anything (the engine owns credential writes).
//   - Log or return plaintext passwords.
package password
