package worker

import (
	"context"
)

// Worker - фоновый процесс, управляемый WorkerManager
type Worker interface {
	// Start блокирует до остановки воркера или отмены ctx
	Start(ctx context.Context) error

	// Stop сигнализирует воркеру завершиться; повторный вызов безопасен
	Stop() error

	// Name возвращает имя воркера для логов
	Name() string
}
