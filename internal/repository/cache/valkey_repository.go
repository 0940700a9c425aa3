package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/config"
	"github.com/seoul-location-services/internal/domain/repository"
)

// Valkey implements repository.CacheRepository on valkey-go.
type Valkey struct {
	client valkey.Client
	logger *zap.Logger
}

// NewValkey connects to the cache host configured for Redis; the two
// drivers speak the same protocol.
func NewValkey(cfg *config.RedisConfig, logger *zap.Logger) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{cfg.Addr()},
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}

	logger.Info("Valkey connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	return &Valkey{client: client, logger: logger}, nil
}

var _ repository.CacheRepository = (*Valkey)(nil)

func (v *Valkey) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Do(ctx, v.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("valkey get: %w", err)
	}
	return b, nil
}

func (v *Valkey) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := v.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Px(ttl).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set: %w", err)
	}
	return nil
}

func (v *Valkey) Delete(ctx context.Context, key string) (bool, error) {
	n, err := v.client.Do(ctx, v.client.B().Del().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("valkey del: %w", err)
	}
	return n > 0, nil
}

func (v *Valkey) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	deleted := 0

	for {
		entry, err := v.client.Do(ctx,
			v.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build(),
		).AsScanEntry()
		if err != nil {
			return deleted, fmt.Errorf("valkey scan: %w", err)
		}

		if len(entry.Elements) > 0 {
			n, err := v.client.Do(ctx, v.client.B().Unlink().Key(entry.Elements...).Build()).AsInt64()
			if err != nil {
				return deleted, fmt.Errorf("valkey unlink: %w", err)
			}
			deleted += int(n)
		}

		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	v.logger.Debug("Valkey keys deleted", zap.String("pattern", pattern), zap.Int("count", deleted))
	return deleted, nil
}

func (v *Valkey) Health(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (v *Valkey) Close() {
	v.client.Close()
}
