package repository

import (
	"context"

	"github.com/seoul-location-services/internal/domain"
)

// StreamRepository - интерфейс для работы с Redis Streams
type StreamRepository interface {
	// ConsumeStream читает сообщения из стрима
	ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error)

	// AckMessage подтверждает обработку сообщения
	AckMessage(ctx context.Context, stream, group, messageID string) error

	// CreateConsumerGroup создаёт consumer group
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// PublishToStream публикует сообщение в стрим
	PublishToStream(ctx context.Context, stream string, data interface{}) error
}

// DataChangedHandler обрабатывает событие изменения данных источника
type DataChangedHandler func(ctx context.Context, event domain.DataChangedEvent) error

// EventSubscriber - подписка на события изменения данных (NATS)
type EventSubscriber interface {
	// SubscribeDataChanged регистрирует обработчик событий
	SubscribeDataChanged(ctx context.Context, handler DataChangedHandler) error

	// Close отписывается и закрывает соединение
	Close()
}

// EventPublisher публикует события изменения данных
type EventPublisher interface {
	PublishDataChanged(ctx context.Context, event domain.DataChangedEvent) error
}
