package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
)

// Publisher implements repository.EventPublisher on a core NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

func NewPublisher(conn *nats.Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

var _ repository.EventPublisher = (*Publisher)(nil)

// PublishDataChanged publishes and flushes so the caller knows the server has
// the event before it returns.
func (p *Publisher) PublishDataChanged(ctx context.Context, event domain.DataChangedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal data changed event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
