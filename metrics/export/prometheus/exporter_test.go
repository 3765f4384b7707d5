package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"

	quizAuth "github.com/quizdeck/quizAuth"
)

type stubSource struct {
	snapshot quizAuth.MetricsSnapshot
	dropped  uint64
}

func (s *stubSource) MetricsSnapshot() quizAuth.MetricsSnapshot { return s.snapshot }
func (s *stubSource) AuditDropped() uint64                      { return s.dropped }

func testSource() *stubSource {
	return &stubSource{
		snapshot: quizAuth.MetricsSnapshot{
			Counters: map[quizAuth.MetricID]uint64{
				quizAuth.MetricLoginSuccess:      7,
				quizAuth.MetricSessionSuperseded: 2,
			},
			Histograms: map[quizAuth.MetricID][]uint64{
				quizAuth.MetricValidateLatency: {3, 1, 0, 0, 0, 0, 0, 1},
			},
		},
		dropped: 4,
	}
}

func TestRenderCounters(t *testing.T) {
	out := NewExporterFromSource(testSource()).Render()

	for _, want := range []string{
		"# TYPE quizauth_login_success_total counter",
		"quizauth_login_success_total 7",
		"quizauth_session_superseded_total 2",
		"quizauth_logout_total 0",
		"quizauth_audit_dropped_total 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderHistogramCumulative(t *testing.T) {
	out := NewExporterFromSource(testSource()).Render()

	for _, want := range []string{
		"# TYPE quizauth_validate_latency_seconds histogram",
		`quizauth_validate_latency_seconds_bucket{le="0.005"} 3`,
		`quizauth_validate_latency_seconds_bucket{le="0.01"} 4`,
		`quizauth_validate_latency_seconds_bucket{le="+Inf"} 5`,
		"quizauth_validate_latency_seconds_count 5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderEmptySource(t *testing.T) {
	src := &stubSource{snapshot: quizAuth.MetricsSnapshot{
		Counters:   map[quizAuth.MetricID]uint64{},
		Histograms: map[quizAuth.MetricID][]uint64{},
	}}
	if out := NewExporterFromSource(src).Render(); out != "" {
		t.Fatalf("empty source rendered %q", out)
	}
}

func TestHandlerContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)

	NewExporterFromSource(testSource()).Handler().ServeHTTP(rec, req)

	ct := rec.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "quizauth_login_success_total 7") {
		t.Fatal("body missing rendered metrics")
	}
}
