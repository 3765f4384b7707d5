// Package prometheus renders quizAuth metrics in Prometheus text exposition
// format.
//
// [NewExporter] accepts a [quizAuth.Engine] and exposes an [http.Handler]
// that serves all engine counters and the validate-latency histogram.
// Counter names are prefixed quizauth_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the
//     Handler.
//   - Mutate engine state.
package prometheus
