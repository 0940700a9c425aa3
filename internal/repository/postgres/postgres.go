package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/config"
	"github.com/seoul-location-services/internal/pkg/metrics"
)

const (
	pingTimeout     = 5 * time.Second
	connectAttempts = 5
	firstRetryDelay = 500 * time.Millisecond
)

// DB - пул соединений к базе с наборами данных источников
type DB struct {
	*sqlx.DB
	logger *zap.Logger
}

// New открывает пул и ждёт, пока база станет доступна: при старте в
// docker-compose Postgres часто поднимается позже сервиса.
func New(cfg *config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sqlx.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := pingWithRetry(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := metrics.RegisterDBStats(db.DB, cfg.DBName); err != nil {
		logger.Warn("Failed to export connection pool metrics", zap.Error(err))
	}

	logger.Info("PostgreSQL connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DBName),
		zap.Int("max_conns", cfg.MaxConns),
	)

	return &DB{DB: db, logger: logger}, nil
}

func pingWithRetry(db *sqlx.DB, logger *zap.Logger) error {
	delay := firstRetryDelay
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < connectAttempts {
			logger.Warn("Database not ready, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", connectAttempts, err)
}

func (db *DB) Close() error {
	db.logger.Info("Closing PostgreSQL connection")
	return db.DB.Close()
}

// Health - проверка доступности для /health
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// NewDBForTest wraps an already connected database.
func NewDBForTest(sqlxDB *sqlx.DB, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{
		DB:     sqlxDB,
		logger: logger,
	}
}
