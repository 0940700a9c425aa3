package invalidation

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/config"
	"github.com/seoul-location-services/internal/domain/repository"
	"github.com/seoul-location-services/internal/repository/cache"
	natsRepo "github.com/seoul-location-services/internal/repository/nats"
	redisRepo "github.com/seoul-location-services/internal/repository/redis"
)

const clientName = "seoul-cache-invalidation"

// NewSubscriber подключает транспорт событий из конфигурации.
// Возвращаемая функция закрывает соединение.
func NewSubscriber(cfg *config.Config, logger *zap.Logger) (repository.EventSubscriber, func(), error) {
	switch cfg.Invalidation.Transport {
	case config.TransportNATS:
		conn, err := natsRepo.Connect(cfg.NATS.URL, clientName, logger)
		if err != nil {
			return nil, nil, err
		}
		// Subscriber.Close сам закрывает соединение
		return natsRepo.NewSubscriber(conn, cfg.NATS.Subject, cfg.Invalidation.ConsumerGroup, logger), func() {}, nil

	case config.TransportRedisStream:
		r, err := cache.NewRedis(&cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		streams := redisRepo.NewStreamRepository(r.Client(), logger)
		sub := redisRepo.NewStreamSubscriber(streams, cfg.Invalidation.Stream, cfg.Invalidation.ConsumerGroup, consumerName(), logger)
		return sub, func() { _ = r.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown invalidation transport %q", cfg.Invalidation.Transport)
	}
}

// NewPublisher - сторона коллекторов: публикация событий об обновлении источника
func NewPublisher(cfg *config.Config, logger *zap.Logger) (repository.EventPublisher, func(), error) {
	switch cfg.Invalidation.Transport {
	case config.TransportNATS:
		conn, err := natsRepo.Connect(cfg.NATS.URL, clientName+"-publisher", logger)
		if err != nil {
			return nil, nil, err
		}
		pub := natsRepo.NewPublisher(conn, cfg.NATS.Subject)
		return pub, pub.Close, nil

	case config.TransportRedisStream:
		r, err := cache.NewRedis(&cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		streams := redisRepo.NewStreamRepository(r.Client(), logger)
		return redisRepo.NewStreamPublisher(streams, cfg.Invalidation.Stream), func() { _ = r.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown invalidation transport %q", cfg.Invalidation.Transport)
	}
}

// consumerName is unique per process so pending entries stay attributable.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
