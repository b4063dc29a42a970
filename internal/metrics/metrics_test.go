package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.Event("message")
	m.Event("message")
	m.Command("clear")
	m.Completion("ok", 150*time.Millisecond)
	m.Tokens(10, 2, 5)
	m.Summary("error")

	if got := testutil.ToFloat64(m.events.WithLabelValues("message")); got != 2 {
		t.Fatalf("events: want 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.tokens.WithLabelValues("cached_input")); got != 2 {
		t.Fatalf("cached tokens: want 2, got %v", got)
	}

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	for _, name := range []string{"linechat_events_total", "linechat_commands_total", "linechat_completion_duration_seconds", "linechat_summaries_total"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metric %s missing from exposition", name)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Event("x")
	m.Command("x")
	m.Completion("ok", time.Second)
	m.Tokens(1, 1, 1)
	m.Summary("ok")
	if m.Registry() != nil {
		t.Fatalf("nil metrics must have nil registry")
	}
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 404 {
		t.Fatalf("nil metrics handler should 404, got %d", rr.Code)
	}
}
