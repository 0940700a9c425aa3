package repository

import (
	"context"

	"github.com/seoul-location-services/internal/domain"
)

// SourceRepository - хранилище записей по видам источников
type SourceRepository interface {
	// Fetch возвращает все записи указанного вида, уже помеченные этим видом
	Fetch(ctx context.Context, kind domain.SourceKind) ([]domain.CandidateRecord, error)

	// Count возвращает количество записей указанного вида
	Count(ctx context.Context, kind domain.SourceKind) (int, error)
}
