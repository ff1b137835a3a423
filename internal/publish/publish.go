// Package publish sends artifact notices to a message bus.
package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/synthdata/internal/config"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/logfields"
)

// ArtifactNotice announces a stored artifact.
type ArtifactNotice struct {
	RunID       string    `json:"run_id"`
	Recipe      string    `json:"recipe"`
	Kind        string    `json:"kind"`
	Hash        string    `json:"hash"`
	ObjectType  string    `json:"object_type"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Points      int       `json:"points"`
	Anomalies   int       `json:"anomalies"`
	Seed        uint64    `json:"seed"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers notices.
type Publisher interface {
	Publish(ctx context.Context, n ArtifactNotice) error
	// Subject names the destination, or "" when publishing is disabled.
	Subject() string
	Close() error
}

// NoopPublisher drops every notice.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ArtifactNotice) error { return nil }
func (NoopPublisher) Subject() string                              { return "" }
func (NoopPublisher) Close() error                                 { return nil }

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSPublisher publishes notices as JSON on a NATS subject.
type NATSPublisher struct {
	conn    conn
	subject string
	timeout time.Duration
}

// New returns a NATSPublisher for cfg, or a NoopPublisher when cfg is nil.
func New(cfg *config.NATSConfig) (Publisher, error) {
	if cfg == nil || cfg.URL == "" {
		return NoopPublisher{}, nil
	}

	timeout := parseTimeout(cfg.Timeout)
	name := cfg.Name
	if name == "" {
		name = "synthdata"
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", logfields.URL(c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", cfg.URL).
			Retryable().
			Build()
	}

	slog.Info("NATS publisher connected", logfields.URL(cfg.URL), logfields.Subject(cfg.Subject))
	return newNATSPublisher(nc, cfg.Subject, timeout), nil
}

func newNATSPublisher(c conn, subject string, timeout time.Duration) *NATSPublisher {
	if subject == "" {
		subject = config.DefaultNATSSubject
	}
	return &NATSPublisher{conn: c, subject: subject, timeout: timeout}
}

// Subject returns the subject notices go to.
func (p *NATSPublisher) Subject() string { return p.subject }

// Publish sends n and waits for the server to acknowledge the flush. The
// flush timeout is the smaller of the configured timeout and ctx's deadline.
func (p *NATSPublisher) Publish(ctx context.Context, n ArtifactNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return errors.WrapError(err, errors.CategoryPublish, "failed to marshal notice").Build()
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryPublish, "failed to publish notice").
			WithContext("subject", p.subject).
			Retryable().
			Build()
	}

	timeout := p.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		return errors.WrapError(err, errors.CategoryPublish, "failed to flush notice").
			WithContext("subject", p.subject).
			Retryable().
			Build()
	}

	slog.Debug("Published artifact notice",
		logfields.RunID(n.RunID),
		logfields.Artifact(n.Hash),
		logfields.Subject(p.subject))
	return nil
}

// Close drains nothing; pending messages were flushed per publish.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

func parseTimeout(s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(config.DefaultNATSTimeout)
	return d
}
