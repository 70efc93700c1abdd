package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes per-operation commit and rollback counts
// and cumulative durations under one expvar name.
type ExpvarMetricsRecorder struct {
	name string

	mu      sync.Mutex
	ops     map[string]*OperationStats
	updated time.Time
}

// OperationStats aggregates the outcomes of one operation.
type OperationStats struct {
	Commits   int64   `json:"commits"`
	Rollbacks int64   `json:"rollbacks"`
	TotalMS   float64 `json:"total_ms"`
	MaxMS     float64 `json:"max_ms"`
}

// ExpvarSnapshot is the published value.
type ExpvarSnapshot struct {
	Operations map[string]OperationStats `json:"operations"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated name when name is empty. expvar names are process-global, so a
// name may only be used once.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("configedit_mutations_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	r := &ExpvarMetricsRecorder{name: name, ops: make(map[string]*OperationStats)}
	expvar.Publish(name, expvar.Func(func() any { return r.Snapshot() }))
	return r
}

// Name is the expvar name the recorder is published under.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current statistics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]OperationStats, len(r.ops))
	for op, s := range r.ops {
		out[op] = *s
	}
	return ExpvarSnapshot{Operations: out, UpdatedAt: r.updated}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.ops[operation]
	if !ok {
		s = &OperationStats{}
		r.ops[operation] = s
	}
	if success {
		s.Commits++
	} else {
		s.Rollbacks++
	}
	s.TotalMS += ms
	s.MaxMS = max(s.MaxMS, ms)
	r.updated = time.Now().UTC()
}

// SpanRecord is one finished span as written by JSONTracer.
type SpanRecord struct {
	Operation  string            `json:"operation"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	DurationMS float64           `json:"duration_ms"`
}

// JSONTracer writes each finished span as a JSON line and keeps a copy.
type JSONTracer struct {
	attrs map[string]string

	mu    sync.Mutex
	spans []SpanRecord
	enc   *json.Encoder
}

// NewJSONTracer writes spans to w; a nil writer only retains them.
// attrs are attached to every span.
func NewJSONTracer(w io.Writer, attrs map[string]string) *JSONTracer {
	t := &JSONTracer{attrs: maps.Clone(attrs)}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Spans returns the finished spans in completion order.
func (t *JSONTracer) Spans() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.spans...)
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonSpan struct {
	tracer    *JSONTracer
	operation string
	started   time.Time
}

func (s *jsonSpan) End(err error) {
	rec := SpanRecord{
		Operation:  s.operation,
		Status:     statusLabel(err == nil),
		Attributes: s.tracer.attrs,
		StartedAt:  s.started,
		DurationMS: float64(time.Since(s.started)) / float64(time.Millisecond),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.spans = append(s.tracer.spans, rec)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(rec)
	}
}
