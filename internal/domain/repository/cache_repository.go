package repository

import (
	"context"
	"time"
)

// CacheRepository - key-value хранилище с TTL для результатов поиска
type CacheRepository interface {
	// Get возвращает значение по ключу; (nil, nil) при промахе
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ, возвращает true если ключ существовал
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteMatching удаляет все ключи по glob-шаблону и возвращает их количество
	DeleteMatching(ctx context.Context, pattern string) (int, error)

	// Health проверяет доступность хранилища
	Health(ctx context.Context) error
}
