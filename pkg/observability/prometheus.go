package observability

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements Metrics on a Prometheus registry.
//
// Vectors are created on first use of a metric name and keep the label
// set of that first call. Later calls fill missing labels with "" and
// drop labels the vector does not know.
type PrometheusMetrics struct {
	namespace string
	factory   promauto.Factory
	registry  *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*labeledCounter
	gauges     map[string]*labeledGauge
	histograms map[string]*labeledHistogram
}

type labeledCounter struct {
	labels []string
	vec    *prometheus.CounterVec
}

type labeledGauge struct {
	labels []string
	vec    *prometheus.GaugeVec
}

type labeledHistogram struct {
	labels []string
	vec    *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a collector with its own registry. Go and
// process collectors are registered alongside.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return &PrometheusMetrics{
		namespace:  namespace,
		factory:    promauto.With(registry),
		registry:   registry,
		counters:   make(map[string]*labeledCounter),
		gauges:     make(map[string]*labeledGauge),
		histograms: make(map[string]*labeledHistogram),
	}
}

// Registry exposes the registry for promhttp.HandlerFor.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	c, ok := m.counters[name]
	if !ok {
		labels := labelNames(tags)
		c = &labeledCounter{
			labels: labels,
			vec: m.factory.NewCounterVec(prometheus.CounterOpts{
				Namespace: m.namespace,
				Name:      metricName(m.namespace, name, "_total"),
				Help:      name,
			}, labels),
		}
		m.counters[name] = c
	}
	m.mu.Unlock()

	c.vec.WithLabelValues(labelValues(c.labels, tags)...).Add(float64(value))
}

func (m *PrometheusMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	g, ok := m.gauges[name]
	if !ok {
		labels := labelNames(tags)
		g = &labeledGauge{
			labels: labels,
			vec: m.factory.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: m.namespace,
				Name:      metricName(m.namespace, name, ""),
				Help:      name,
			}, labels),
		}
		m.gauges[name] = g
	}
	m.mu.Unlock()

	g.vec.WithLabelValues(labelValues(g.labels, tags)...).Set(value)
}

func (m *PrometheusMetrics) Histogram(name string, value float64, tags ...Tag) {
	m.histogram(name, "", prometheus.DefBuckets, tags).Observe(value)
}

// Timing is recorded in seconds.
func (m *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	buckets := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10}
	m.histogram(name, "_seconds", buckets, tags).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) histogram(name, suffix string, buckets []float64, tags []Tag) prometheus.Observer {
	m.mu.Lock()
	h, ok := m.histograms[name]
	if !ok {
		labels := labelNames(tags)
		h = &labeledHistogram{
			labels: labels,
			vec: m.factory.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: m.namespace,
				Name:      metricName(m.namespace, name, suffix),
				Help:      name,
				Buckets:   buckets,
			}, labels),
		}
		m.histograms[name] = h
	}
	m.mu.Unlock()

	return h.vec.WithLabelValues(labelValues(h.labels, tags)...)
}

// metricName turns "todo.tasks.saved" into "tasks_saved" under the
// "todo" namespace.
func metricName(namespace, name, suffix string) string {
	name = strings.TrimPrefix(name, namespace+".")
	name = strings.NewReplacer(".", "_", "-", "_").Replace(name)
	if suffix != "" && !strings.HasSuffix(name, suffix) {
		name += suffix
	}
	return name
}

func labelNames(tags []Tag) []string {
	names := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if !seen[t.Key] {
			seen[t.Key] = true
			names = append(names, t.Key)
		}
	}
	sort.Strings(names)
	return names
}

func labelValues(names []string, tags []Tag) []string {
	values := make([]string, len(names))
	for i, name := range names {
		for _, t := range tags {
			if t.Key == name {
				values[i] = t.Value
			}
		}
	}
	return values
}
