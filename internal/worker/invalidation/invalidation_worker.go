package invalidation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
	"github.com/seoul-location-services/internal/worker"
)

const workerName = "cache-invalidation"

// Invalidator drops cached search results that may hold records of kind.
type Invalidator interface {
	InvalidateKind(ctx context.Context, kind domain.SourceKind) int
}

// CacheInvalidationWorker слушает события обновления источников и сбрасывает
// кеш затронутых категорий
type CacheInvalidationWorker struct {
	*worker.BaseWorker
	subscriber repository.EventSubscriber
	cache      Invalidator
	registry   *domain.SourceRegistry
}

func NewCacheInvalidationWorker(
	subscriber repository.EventSubscriber,
	cache Invalidator,
	registry *domain.SourceRegistry,
	logger *zap.Logger,
) *CacheInvalidationWorker {
	return &CacheInvalidationWorker{
		BaseWorker: worker.NewBaseWorker(workerName, logger),
		subscriber: subscriber,
		cache:      cache,
		registry:   registry,
	}
}

// Start подписывается на события и блокирует до остановки
func (w *CacheInvalidationWorker) Start(ctx context.Context) error {
	if err := w.subscriber.SubscribeDataChanged(ctx, w.HandleDataChanged); err != nil {
		return fmt.Errorf("subscribe data changed: %w", err)
	}
	defer w.subscriber.Close()

	w.Logger().Info("Cache invalidation worker started")
	return w.Wait(ctx)
}

// HandleDataChanged сбрасывает кеш вида из события; пустой вид сбрасывает всё.
// События неизвестных видов игнорируются.
func (w *CacheInvalidationWorker) HandleDataChanged(ctx context.Context, event domain.DataChangedEvent) error {
	kind := event.SourceKind
	if kind != "" {
		parsed, ok := w.registry.Parse(string(kind))
		if !ok {
			w.Logger().Warn("Ignoring change of unknown source kind", zap.String("source_kind", string(kind)))
			return nil
		}
		kind = parsed
	}

	deleted := w.cache.InvalidateKind(ctx, kind)
	w.Logger().Info("Cache invalidated after source change",
		zap.String("source_kind", string(kind)),
		zap.Time("changed_at", event.ChangedAt),
		zap.Int("rows", event.Rows),
		zap.Int("deleted_keys", deleted))
	return nil
}
