package core

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Clock supplies timestamps for operation timing.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder observes every mutation outcome.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span per mutation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the mutation's error, nil on commit.
type TraceSpan interface {
	End(err error)
}

// AuditStatus is the outcome of an audited mutation.
type AuditStatus string

// Audit outcomes.
const (
	AuditCommitted  AuditStatus = "committed"
	AuditRolledBack AuditStatus = "rolled_back"
)

// AuditEntry describes one finished mutation.
type AuditEntry struct {
	Session   string
	Operation string
	Status    AuditStatus
	Changes   []ChangeRecord
	Error     string
	Duration  time.Duration
	At        time.Time
}

// ChangeRecord is the audited form of a domain change.
type ChangeRecord struct {
	Entity string
	Action string
	Key    string
}

// AuditRecorder receives an entry per finished mutation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}

// MemoryAuditRecorder keeps entries in memory, newest last.
type MemoryAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record implements AuditRecorder.
func (m *MemoryAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (m *MemoryAuditRecorder) Entries() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.entries...)
}

// PrometheusMetricsRecorder counts mutations and their durations by
// operation and outcome.
type PrometheusMetricsRecorder struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the mutation collectors on reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer, namespace string) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Configuration mutations by operation and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Time spent applying and validating a mutation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation", "status"}),
	}
	for _, c := range []prometheus.Collector{r.total, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := statusLabel(success)
	r.total.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

func statusLabel(success bool) string {
	if success {
		return "commit"
	}
	return "rollback"
}
