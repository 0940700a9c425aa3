package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// BaseWorker содержит общую логику остановки для всех воркеров
type BaseWorker struct {
	name     string
	logger   *zap.Logger
	stopChan chan struct{}
	once     sync.Once
}

// NewBaseWorker создает BaseWorker; логгер получает поле worker
func NewBaseWorker(name string, logger *zap.Logger) *BaseWorker {
	return &BaseWorker{
		name:     name,
		logger:   logger.With(zap.String("worker", name)),
		stopChan: make(chan struct{}),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

// Stop закрывает канал остановки ровно один раз
func (w *BaseWorker) Stop() error {
	w.once.Do(func() {
		w.logger.Info("Stopping worker")
		close(w.stopChan)
	})
	return nil
}

// IsStopped проверяет, был ли вызван Stop
func (w *BaseWorker) IsStopped() bool {
	select {
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

func (w *BaseWorker) StopChan() <-chan struct{} {
	return w.stopChan
}

// Wait блокирует до Stop или отмены ctx. Остановка через Stop не ошибка.
func (w *BaseWorker) Wait(ctx context.Context) error {
	select {
	case <-w.stopChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *BaseWorker) Logger() *zap.Logger {
	return w.logger
}
