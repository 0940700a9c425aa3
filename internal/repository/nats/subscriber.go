package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
)

// Subscriber implements repository.EventSubscriber. Instances sharing a queue
// group split the events between them, so a shared cache is invalidated once.
type Subscriber struct {
	conn    *nats.Conn
	subject string
	queue   string
	logger  *zap.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

func NewSubscriber(conn *nats.Conn, subject, queue string, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		conn:    conn,
		subject: subject,
		queue:   queue,
		logger:  logger,
	}
}

var _ repository.EventSubscriber = (*Subscriber)(nil)

func (s *Subscriber) SubscribeDataChanged(ctx context.Context, handler repository.DataChangedHandler) error {
	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, func(msg *nats.Msg) {
		s.handle(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	s.logger.Info("Subscribed to data change subject",
		zap.String("subject", s.subject),
		zap.String("queue", s.queue))
	return nil
}

func (s *Subscriber) handle(ctx context.Context, data []byte, handler repository.DataChangedHandler) {
	var event domain.DataChangedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn("Dropping malformed data change event", zap.Error(err))
		return
	}
	if err := handler(ctx, event); err != nil {
		s.logger.Error("Data change handler failed",
			zap.String("source_kind", string(event.SourceKind)),
			zap.Error(err))
	}
}

// Close drains the subscription and the connection.
func (s *Subscriber) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		_ = sub.Drain()
	}
	_ = s.conn.Drain()
}
