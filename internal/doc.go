// Package internal holds id and token generation primitives shared by the
// quizAuth engine and its stores.
//
// # What this package must NOT do
//
//   - Be imported outside the quizAuth module.
//   - Perform any I/O beyond crypto/rand reads.
package internal
