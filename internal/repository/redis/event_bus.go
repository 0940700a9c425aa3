package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
)

// StreamSubscriber delivers DataChangedEvents read from a Redis stream
// through a consumer group. Each event is acknowledged once its handler
// returns nil; undecodable messages are acknowledged and dropped.
type StreamSubscriber struct {
	streams  repository.StreamRepository
	stream   string
	group    string
	consumer string
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewStreamSubscriber(streams repository.StreamRepository, stream, group, consumer string, logger *zap.Logger) *StreamSubscriber {
	return &StreamSubscriber{
		streams:  streams,
		stream:   stream,
		group:    group,
		consumer: consumer,
		logger:   logger,
	}
}

var _ repository.EventSubscriber = (*StreamSubscriber)(nil)

func (s *StreamSubscriber) SubscribeDataChanged(ctx context.Context, handler repository.DataChangedHandler) error {
	if err := s.streams.CreateConsumerGroup(ctx, s.stream, s.group); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	messages, err := s.streams.ConsumeStream(ctx, s.stream, s.group, s.consumer)
	if err != nil {
		cancel()
		return fmt.Errorf("consume %s: %w", s.stream, err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for msg := range messages {
			s.dispatch(ctx, msg, handler)
		}
	}()

	s.logger.Info("Subscribed to data change stream",
		zap.String("stream", s.stream),
		zap.String("group", s.group),
		zap.String("consumer", s.consumer))
	return nil
}

func (s *StreamSubscriber) dispatch(ctx context.Context, msg domain.StreamMessage, handler repository.DataChangedHandler) {
	var event domain.DataChangedEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		s.logger.Warn("Dropping malformed data change event",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		s.ack(ctx, msg.ID)
		return
	}

	if err := handler(ctx, event); err != nil {
		// left pending for redelivery
		s.logger.Error("Data change handler failed",
			zap.String("message_id", msg.ID),
			zap.String("source_kind", string(event.SourceKind)),
			zap.Error(err))
		return
	}
	s.ack(ctx, msg.ID)
}

func (s *StreamSubscriber) ack(ctx context.Context, id string) {
	if err := s.streams.AckMessage(ctx, s.stream, s.group, id); err != nil {
		s.logger.Error("Failed to acknowledge event", zap.String("message_id", id), zap.Error(err))
	}
}

// Close stops reading and waits for the in-flight handler.
func (s *StreamSubscriber) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// StreamPublisher appends DataChangedEvents to a Redis stream.
type StreamPublisher struct {
	streams repository.StreamRepository
	stream  string
}

func NewStreamPublisher(streams repository.StreamRepository, stream string) *StreamPublisher {
	return &StreamPublisher{streams: streams, stream: stream}
}

var _ repository.EventPublisher = (*StreamPublisher)(nil)

func (p *StreamPublisher) PublishDataChanged(ctx context.Context, event domain.DataChangedEvent) error {
	return p.streams.PublishToStream(ctx, p.stream, event)
}
