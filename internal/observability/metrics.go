package observability

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name   string
	help   string
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	name   string
	help   string
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Histogram tracks distribution of values.
type Histogram struct {
	name    string
	help    string
	labels  map[string]string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates a new metrics registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		histos:   make(map[string]*Histogram),
	}
}

// NewCounter creates and registers a counter.
func (r *MetricsRegistry) NewCounter(name, help string, labels map[string]string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Counter{name: name, help: help, labels: labels}
	r.counters[name] = c
	return c
}

// NewGauge creates and registers a gauge.
func (r *MetricsRegistry) NewGauge(name, help string, labels map[string]string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &Gauge{name: name, help: help, labels: labels}
	r.gauges[name] = g
	return g
}

// NewHistogram creates and registers a histogram.
func (r *MetricsRegistry) NewHistogram(name, help string, labels map[string]string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	if buckets == nil {
		buckets = DefaultBuckets()
	}

	h := &Histogram{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	r.histos[name] = h
	return h
}

// DefaultBuckets returns default histogram buckets for latency.
func DefaultBuckets() []float64 {
	return []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
}

// Inc increments a counter by 1.
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds a value to the counter.
func (c *Counter) Add(v float64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set sets the gauge value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.Add(-1)
}

// Add adds a value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++

	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// ObserveDuration records a duration in the histogram.
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler returns an HTTP handler for Prometheus metrics.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes metrics in Prometheus text format.
func (r *MetricsRegistry) WritePrometheus(w http.ResponseWriter) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		c.mu.Lock()
		writeMetric(w, c.name, "counter", c.help, c.labels, c.value)
		c.mu.Unlock()
	}

	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		g.mu.Lock()
		writeMetric(w, g.name, "gauge", g.help, g.labels, g.value)
		g.mu.Unlock()
	}

	for _, name := range sortedKeys(r.histos) {
		h := r.histos[name]
		h.mu.Lock()
		writeHistogram(w, h)
		h.mu.Unlock()
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeMetric(w http.ResponseWriter, name, metricType, help string, labels map[string]string, value float64) {
	w.Write([]byte("# HELP " + name + " " + help + "\n"))
	w.Write([]byte("# TYPE " + name + " " + metricType + "\n"))
	w.Write([]byte(name + formatLabels(labels) + " " + formatFloat(value) + "\n"))
}

func writeHistogram(w http.ResponseWriter, h *Histogram) {
	w.Write([]byte("# HELP " + h.name + " " + h.help + "\n"))
	w.Write([]byte("# TYPE " + h.name + " histogram\n"))

	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += h.counts[i]
		labels := copyLabels(h.labels)
		labels["le"] = formatFloat(bound)
		w.Write([]byte(h.name + "_bucket" + formatLabels(labels) + " " + strconv.FormatUint(cumulative, 10) + "\n"))
	}

	labels := copyLabels(h.labels)
	labels["le"] = "+Inf"
	w.Write([]byte(h.name + "_bucket" + formatLabels(labels) + " " + strconv.FormatUint(h.count, 10) + "\n"))

	w.Write([]byte(h.name + "_sum" + formatLabels(h.labels) + " " + formatFloat(h.sum) + "\n"))
	w.Write([]byte(h.name + "_count" + formatLabels(h.labels) + " " + strconv.FormatUint(h.count, 10) + "\n"))
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	result := "{"
	for i, k := range sortedKeys(labels) {
		if i > 0 {
			result += ","
		}
		result += k + "=\"" + labels[k] + "\""
	}
	result += "}"
	return result
}

func copyLabels(labels map[string]string) map[string]string {
	result := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		result[k] = v
	}
	return result
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Quarry-specific metrics

// QuarryMetrics contains all Quarry-specific metrics.
type QuarryMetrics struct {
	Registry *MetricsRegistry

	// Embedding metrics
	EmbedRequestsTotal *Counter
	EmbedDuration      *Histogram
	EmbedErrorsTotal   *Counter

	// Search metrics
	SearchesTotal      *Counter
	SearchDuration     *Histogram
	SearchEmptyTotal   *Counter
	SearchResultsCount *Histogram

	// Index metrics
	IndexRunsTotal     *Counter
	FilesIndexedTotal  *Counter
	FilesSkippedTotal  *Counter
	ChunksIndexedTotal *Counter
	IndexDuration      *Histogram

	// LLM metrics
	LLMRequestsTotal   *Counter
	LLMRequestDuration *Histogram
	LLMErrorsTotal     *Counter

	// Stored points gauge
	StoredChunks *Gauge
}

// NewQuarryMetrics creates Quarry-specific metrics.
func NewQuarryMetrics() *QuarryMetrics {
	r := NewMetricsRegistry()

	return &QuarryMetrics{
		Registry: r,

		// Embedding
		EmbedRequestsTotal: r.NewCounter("quarry_embed_requests_total", "Total embedding API requests", nil),
		EmbedDuration:      r.NewHistogram("quarry_embed_duration_seconds", "Embedding request duration", nil, nil),
		EmbedErrorsTotal:   r.NewCounter("quarry_embed_errors_total", "Total embedding errors", nil),

		// Search
		SearchesTotal:      r.NewCounter("quarry_searches_total", "Total similarity searches", nil),
		SearchDuration:     r.NewHistogram("quarry_search_duration_seconds", "Search duration", nil, nil),
		SearchEmptyTotal:   r.NewCounter("quarry_searches_empty_total", "Searches with no results above threshold", nil),
		SearchResultsCount: r.NewHistogram("quarry_search_results", "Result count per search", nil, []float64{0, 1, 2, 5, 10, 15, 30}),

		// Index
		IndexRunsTotal:     r.NewCounter("quarry_index_runs_total", "Total reindex runs", nil),
		FilesIndexedTotal:  r.NewCounter("quarry_files_indexed_total", "Files added or updated in the store", nil),
		FilesSkippedTotal:  r.NewCounter("quarry_files_skipped_total", "Files skipped as unchanged or excluded", nil),
		ChunksIndexedTotal: r.NewCounter("quarry_chunks_indexed_total", "Chunks written to the store", nil),
		IndexDuration:      r.NewHistogram("quarry_index_duration_seconds", "Reindex run duration", nil, nil),

		// LLM
		LLMRequestsTotal:   r.NewCounter("quarry_llm_requests_total", "Total LLM completion requests", nil),
		LLMRequestDuration: r.NewHistogram("quarry_llm_request_duration_seconds", "LLM request duration", nil, nil),
		LLMErrorsTotal:     r.NewCounter("quarry_llm_errors_total", "Total LLM errors", nil),

		// Store
		StoredChunks: r.NewGauge("quarry_stored_chunks", "Chunks currently in the vector store", nil),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *QuarryMetrics) Handler() http.Handler {
	return m.Registry.Handler()
}

// RecordEmbed records an embedding request.
func (m *QuarryMetrics) RecordEmbed(duration time.Duration, err error) {
	m.EmbedRequestsTotal.Inc()
	m.EmbedDuration.Observe(duration.Seconds())
	if err != nil {
		m.EmbedErrorsTotal.Inc()
	}
}

// RecordSearch records a similarity search.
func (m *QuarryMetrics) RecordSearch(duration time.Duration, resultCount int) {
	m.SearchesTotal.Inc()
	m.SearchDuration.Observe(duration.Seconds())
	m.SearchResultsCount.Observe(float64(resultCount))
	if resultCount == 0 {
		m.SearchEmptyTotal.Inc()
	}
}

// RecordIndexRun records a full reindex run.
func (m *QuarryMetrics) RecordIndexRun(duration time.Duration, indexed, skipped, chunks int) {
	m.IndexRunsTotal.Inc()
	m.IndexDuration.Observe(duration.Seconds())
	m.FilesIndexedTotal.Add(float64(indexed))
	m.FilesSkippedTotal.Add(float64(skipped))
	m.ChunksIndexedTotal.Add(float64(chunks))
}

// RecordLLMRequest records an LLM completion request.
func (m *QuarryMetrics) RecordLLMRequest(duration time.Duration, err error) {
	m.LLMRequestsTotal.Inc()
	m.LLMRequestDuration.Observe(duration.Seconds())
	if err != nil {
		m.LLMErrorsTotal.Inc()
	}
}

// Global metrics instance
var globalMetrics *QuarryMetrics
var metricsOnce sync.Once

// Metrics returns the global metrics instance.
func Metrics() *QuarryMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewQuarryMetrics()
	})
	return globalMetrics
}
