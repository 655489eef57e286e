package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter_Inc(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("test_counter", "Test counter", nil)

	c.Inc()
	c.Inc()
	c.Inc()

	if c.Value() != 3 {
		t.Fatalf("expected 3, got %f", c.Value())
	}
}

func TestGauge_SetAndAdd(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.NewGauge("test_gauge", "Test gauge", nil)

	g.Set(42)
	if g.Value() != 42 {
		t.Fatalf("expected 42, got %f", g.Value())
	}

	g.Inc()
	g.Dec()
	g.Add(-2)
	if g.Value() != 40 {
		t.Fatalf("expected 40, got %f", g.Value())
	}
}

func TestHistogram_Observe(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_histo", "Test histogram", nil, []float64{0.1, 1, 10})

	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	h.Observe(50)

	if h.count != 4 {
		t.Fatalf("expected count 4, got %d", h.count)
	}
	if h.counts[0] != 1 || h.counts[1] != 2 || h.counts[2] != 3 {
		t.Fatalf("unexpected bucket counts: %v", h.counts)
	}
}

func TestHandler_PrometheusFormat(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("quarry_test_total", "Test total", map[string]string{"lang": "en"})
	c.Add(7)
	g := r.NewGauge("quarry_test_gauge", "Test gauge", nil)
	g.Set(3)
	h := r.NewHistogram("quarry_test_seconds", "Test seconds", nil, []float64{1})
	h.Observe(0.5)

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body := w.Body.String()
	for _, want := range []string{
		"# TYPE quarry_test_total counter",
		`quarry_test_total{lang="en"} 7`,
		"# TYPE quarry_test_gauge gauge",
		"quarry_test_gauge 3",
		"# TYPE quarry_test_seconds histogram",
		`quarry_test_seconds_bucket{le="+Inf"} 1`,
		"quarry_test_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q\n%s", want, body)
		}
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestQuarryMetrics_RecordSearch(t *testing.T) {
	m := NewQuarryMetrics()

	m.RecordSearch(10*time.Millisecond, 5)
	m.RecordSearch(10*time.Millisecond, 0)

	if m.SearchesTotal.Value() != 2 {
		t.Fatalf("expected 2 searches, got %f", m.SearchesTotal.Value())
	}
	if m.SearchEmptyTotal.Value() != 1 {
		t.Fatalf("expected 1 empty search, got %f", m.SearchEmptyTotal.Value())
	}
}

func TestQuarryMetrics_RecordIndexRun(t *testing.T) {
	m := NewQuarryMetrics()

	m.RecordIndexRun(time.Second, 3, 2, 40)

	if m.FilesIndexedTotal.Value() != 3 {
		t.Fatalf("expected 3 indexed files, got %f", m.FilesIndexedTotal.Value())
	}
	if m.FilesSkippedTotal.Value() != 2 {
		t.Fatalf("expected 2 skipped files, got %f", m.FilesSkippedTotal.Value())
	}
	if m.ChunksIndexedTotal.Value() != 40 {
		t.Fatalf("expected 40 chunks, got %f", m.ChunksIndexedTotal.Value())
	}
}

func TestMetrics_GlobalSingleton(t *testing.T) {
	if Metrics() != Metrics() {
		t.Fatal("global metrics must return the same instance")
	}
}
