// Package mailer delivers account emails. Actual SMTP delivery is left to
// deployments; the default mailer writes messages to the log.
package mailer

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Message is a plain-text email
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer sends messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer logs every message instead of sending it
type LogMailer struct {
	from   string
	logger hclog.Logger
}

// NewLogMailer creates a mailer logging through logger
func NewLogMailer(from string, logger hclog.Logger) *LogMailer {
	return &LogMailer{from: from, logger: logger}
}

// Send implements Mailer
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}
	if msg.From == "" {
		msg.From = m.from
	}
	m.logger.Info("email", "from", msg.From, "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

// RecordingMailer keeps sent messages in memory for inspection
type RecordingMailer struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// Send implements Mailer
func (m *RecordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far
func (m *RecordingMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Last returns the most recent message
func (m *RecordingMailer) Last() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return Message{}, false
	}
	return m.messages[len(m.messages)-1], true
}
