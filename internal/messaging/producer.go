package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"student-manager/common/metrics"
	"student-manager/internal/events"

	"github.com/nats-io/nats.go"
)

// Producer publishes domain events to a NATS subject.
type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewProducer(url string, subject string, logger *slog.Logger, m *metrics.Metrics) (*Producer, error) {
	nc, err := nats.Connect(url,
		nats.Name("student-manager"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
		metrics: m,
	}, nil
}

// Publish sends the event to <subject>.<event type>.
func (p *Producer) Publish(ctx context.Context, event events.Event) error {
	start := time.Now()
	err := p.publish(event)
	p.metrics.Messaging.RecordPublish(ctx, "nats", string(event.Type), time.Since(start), err)
	return err
}

func (p *Producer) publish(event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.subject + "." + string(event.Type)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	p.logger.Debug("event sent to NATS", "subject", subject, "entity_id", event.EntityID)
	return nil
}

func (p *Producer) Close() error {
	return p.conn.Drain()
}
