package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/config"
	"github.com/seoul-location-services/internal/domain/repository"
)

// OpenBackend connects the cache driver selected in cfg. The returned
// function releases the connection.
func OpenBackend(cfg *config.Config, logger *zap.Logger) (repository.CacheRepository, func(), error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverValkey:
		v, err := NewValkey(&cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return v, v.Close, nil
	case config.CacheDriverRedis:
		r, err := NewRedis(&cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewCacheRepository(r), func() {
			if err := r.Close(); err != nil {
				logger.Error("Failed to close Redis connection", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
