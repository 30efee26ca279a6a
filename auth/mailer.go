package auth

import (
	"context"
	"sync"
)

// Message is an outbound email.
type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Mailer is the delivery collaborator. Implementations are expected to
// be best effort: the flows that send mail treat delivery failure as a
// logged event, not an operation failure, once the state change that
// matters has committed.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes the message to the logger instead of sending it.
// Not for production use: it logs addresses and full message bodies.
type LogMailer struct {
	logger Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("send email subject=%q from=%s to=%v body=%q", msg.Subject, msg.From, msg.To, msg.Body)
	return nil
}

// MemoryMailer captures messages for tests.
type MemoryMailer struct {
	mu       sync.Mutex
	messages []Message
}

// NewMemoryMailer creates a MemoryMailer.
func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

func (m *MemoryMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MemoryMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}
