package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	quizAuth "github.com/quizdeck/quizAuth"
)

type metricsSource interface {
	MetricsSnapshot() quizAuth.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   quizAuth.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{quizAuth.MetricLoginSuccess, "quizauth_login_success_total", "Successful login attempts."},
	{quizAuth.MetricLoginFailure, "quizauth_login_failure_total", "Failed login attempts."},
	{quizAuth.MetricLoginRateLimited, "quizauth_login_rate_limited_total", "Rate-limited login attempts."},
	{quizAuth.MetricSessionCreated, "quizauth_session_created_total", "Sessions established by login."},
	{quizAuth.MetricSessionSuperseded, "quizauth_session_superseded_total", "Logins that overwrote a live session."},
	{quizAuth.MetricValidateSuccess, "quizauth_validate_success_total", "Session validations that passed."},
	{quizAuth.MetricValidateFailure, "quizauth_validate_failure_total", "Session validations that failed."},
	{quizAuth.MetricLogout, "quizauth_logout_total", "Explicit session clears."},
	{quizAuth.MetricConditionalClearSkipped, "quizauth_conditional_clear_skipped_total", "Unload cleanups skipped because a newer session was found."},
	{quizAuth.MetricRehydrateSuccess, "quizauth_rehydrate_success_total", "Token rehydrations that resolved a live session."},
	{quizAuth.MetricRehydrateFailure, "quizauth_rehydrate_failure_total", "Token rehydrations that found no valid session."},
	{quizAuth.MetricForcedLogout, "quizauth_forced_logout_total", "Forced logouts fired by watch subscriptions."},
	{quizAuth.MetricTabRegistered, "quizauth_tab_registered_total", "Tab registrations."},
	{quizAuth.MetricStaleTabObserved, "quizauth_stale_tab_observed_total", "Tabs that observed themselves superseded."},
	{quizAuth.MetricPasswordUpgraded, "quizauth_password_upgraded_total", "Legacy credentials rewritten as digests."},
	{quizAuth.MetricAccountCreationSuccess, "quizauth_account_creation_success_total", "Accounts registered."},
	{quizAuth.MetricAccountCreationDuplicate, "quizauth_account_creation_duplicate_total", "Registrations rejected as duplicates."},
}

var histogramBounds = [8]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// Exporter renders quizAuth metrics in Prometheus text exposition format.
type Exporter struct {
	source metricsSource
}

// NewExporter creates an exporter that reads from the given
// [quizAuth.Engine].
func NewExporter(engine *quizAuth.Engine) *Exporter {
	return &Exporter{source: engine}
}

// NewExporterFromSource creates an exporter from a custom snapshot source.
func NewExporterFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler returns an http.Handler that serves the metrics.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics in text exposition format.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range counterDefs {
		writeCounter(&b, def.name, def.help, snapshot.Counters[def.id])
	}

	if buckets, ok := snapshot.Histograms[quizAuth.MetricValidateLatency]; ok {
		writeHistogram(&b, "quizauth_validate_latency_seconds",
			"Latency of session validations.", cumulative(buckets))
	}

	writeCounter(&b, "quizauth_audit_dropped_total",
		"Dropped audit events due to dispatcher backpressure.", dropped)

	return b.String()
}

func cumulative(buckets []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(out) && i < len(buckets); i++ {
		running += buckets[i]
		out[i] = running
	}
	for i := len(buckets); i < len(out); i++ {
		out[i] = running
	}
	return out
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, buckets [8]uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" histogram\n")

	for i, le := range histogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(buckets[i], 10))
		b.WriteByte('\n')
	}

	count := buckets[len(buckets)-1]
	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(count, 10))
	b.WriteByte('\n')

	// Sum is not tracked in core snapshots; keep a stable field for scrapers.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
