// Package notify publishes build lifecycle events to NATS when configured.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/assetpipe/internal/config"
)

// BuildEvent is the payload published for each completed build.
type BuildEvent struct {
	BuildID   string            `json:"build_id"`
	Status    string            `json:"status"` // succeeded|failed|skipped
	Timestamp time.Time         `json:"timestamp"`
	Duration  int64             `json:"duration_ms"`
	Artifacts int               `json:"artifacts"`
	Assets    map[string]string `json:"assets,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Publisher publishes build events. The zero value is a disabled publisher
// whose methods are safe no-ops, so callers need no nil checks.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS per the notify config. Returns a disabled
// publisher when notifications are not enabled.
func NewPublisher(cfg config.NotifyConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{}, nil
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("assetpipe"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", cfg.NATSURL, "subject", cfg.Subject)
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// Publish sends a build event. No-op on a disabled publisher.
func (p *Publisher) Publish(event BuildEvent) error {
	if p == nil || p.conn == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published build event", "build_id", event.BuildID, "status", event.Status)
	return nil
}

// Close drains and closes the connection. No-op on a disabled publisher.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", "error", err)
	}
}
