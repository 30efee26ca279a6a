package auth

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit event types recorded by the password reset flows.
const (
	AuditEventResetRequested = "password_reset.requested"
	AuditEventResetConfirmed = "password_reset.confirmed"
)

// AuditEvent is one line in the reset-flow audit trail.
type AuditEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"event_type"`
	Email      string    `json:"email,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	SourceAddr string    `json:"source_addr,omitempty"`
	Success    bool      `json:"success"`
}

// AuditSink receives audit events. Emit must not block the request
// beyond writing the line and must never fail the calling operation.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// JSONWriterSink writes one JSON object per line to the writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.writer)
	_ = enc.Encode(event)
}

func normalizeAuditSink(sink AuditSink) AuditSink {
	if sink == nil {
		return NoOpSink{}
	}
	return sink
}
