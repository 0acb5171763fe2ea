package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Message kinds.
const (
	KindShareInvite   = "share_invite"
	KindPasswordReset = "password_reset"
	KindWelcome       = "welcome"
)

// Message is an outbound email.
type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// Ref is the wishlist or user the message is about.
	Ref string `json:"ref,omitempty"`
}

// Sender delivers messages through one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// LogSender records messages in the log and never delivers them.
type LogSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent int
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log-email" }

// Send logs the envelope. The body is not logged since it can carry tokens.
func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "email send skipped (stub sender)",
		slog.String("kind", msg.Kind),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("ref", msg.Ref),
	)
	return nil
}

// Sent returns how many messages went through the sender.
func (s *LogSender) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}
