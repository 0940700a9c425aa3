package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
)

type sourceRepository struct {
	db       *DB
	registry *domain.SourceRegistry
	logger   *zap.Logger
}

// NewSourceRepository создает репозиторий источников; таблица и поля координат
// каждого вида берутся из реестра
func NewSourceRepository(db *DB, registry *domain.SourceRegistry, logger *zap.Logger) repository.SourceRepository {
	return &sourceRepository{
		db:       db,
		registry: registry,
		logger:   logger,
	}
}

// Fetch возвращает все записи вида, у которых заполнены оба поля координат
func (r *sourceRepository) Fetch(ctx context.Context, kind domain.SourceKind) ([]domain.CandidateRecord, error) {
	d, ok := r.registry.Descriptor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}

	query := fmt.Sprintf(
		"SELECT * FROM %s WHERE %s IS NOT NULL AND %s IS NOT NULL",
		pq.QuoteIdentifier(d.Table),
		pq.QuoteIdentifier(d.Mapping.LatField),
		pq.QuoteIdentifier(d.Mapping.LonField),
	)

	start := time.Now()
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", d.Table, err)
	}
	defer rows.Close()

	records := make([]domain.CandidateRecord, 0, 256)
	for rows.Next() {
		attrs := make(map[string]interface{})
		if err := rows.MapScan(attrs); err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.Table, err)
		}
		normalizeColumns(attrs)
		records = append(records, domain.NewCandidateRecord(kind, attrs))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", d.Table, err)
	}

	r.logger.Debug("Source fetched",
		zap.String("source_kind", string(kind)),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)))

	return records, nil
}

// Count возвращает число записей вида
func (r *sourceRepository) Count(ctx context.Context, kind domain.SourceKind) (int, error) {
	d, ok := r.registry.Descriptor(kind)
	if !ok {
		return 0, fmt.Errorf("unknown source kind %q", kind)
	}

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(d.Table))
	if err := r.db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("count %s: %w", d.Table, err)
	}
	return n, nil
}

// normalizeColumns turns driver byte values (text, numeric, uuid) into strings
// so records encode as plain JSON values.
func normalizeColumns(attrs map[string]interface{}) {
	for k, v := range attrs {
		switch b := v.(type) {
		case []byte:
			attrs[k] = string(b)
		case [16]byte:
			attrs[k] = uuid.UUID(b).String()
		}
	}
}
