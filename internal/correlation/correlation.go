// Package correlation labels every record produced while serving one inbound
// request with a stable trace id and a per-trace monotonic request id.
package correlation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// RequestContext is the ambient metadata of one logical request. It is never
// persisted itself; the pipeline copies its fields onto records as labels.
type RequestContext struct {
	TraceID       string
	RequestID     string
	UserID        string
	IPAddress     string
	UserAgent     string
	RequestPath   string
	RequestMethod string
}

type ctxKey struct{}

// NewContext returns a child context carrying rc. Work scheduled from the
// request (goroutines, timers) inherits the labels by carrying the context;
// unrelated requests never see it.
func NewContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the ambient request context, or nil when the caller is
// not running within one.
func FromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

// Manager hands out trace ids and per-trace request sequence numbers.
//
// The counter table grows with every trace that is never released. The HTTP
// middleware releases on request completion; callers that Begin outside an
// HTTP request must Release themselves or accept the growth.
type Manager struct {
	mu  sync.Mutex
	seq map[string]uint64
}

func NewManager() *Manager {
	return &Manager{seq: make(map[string]uint64)}
}

// Begin opens a request context. An externally supplied trace id is adopted
// unchanged so records can be correlated across systems; otherwise a fresh
// random id is generated.
func (m *Manager) Begin(existingTraceID string) *RequestContext {
	traceID := existingTraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return &RequestContext{
		TraceID:   traceID,
		RequestID: m.NextRequestID(traceID),
	}
}

// NextRequestID returns "{traceID}-{n}". The sequence starts at 1, is never
// reused and never resets while the trace is live, including under
// concurrent callers.
func (m *Manager) NextRequestID(traceID string) string {
	m.mu.Lock()
	m.seq[traceID]++
	n := m.seq[traceID]
	m.mu.Unlock()
	return fmt.Sprintf("%s-%d", traceID, n)
}

// Release evicts the counter for a completed trace.
func (m *Manager) Release(traceID string) {
	m.mu.Lock()
	delete(m.seq, traceID)
	m.mu.Unlock()
}

// Active returns the number of live trace counters, for the health endpoint.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seq)
}
