package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/usecase/dto"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	healthTimeout = 2 * time.Second
)

// HealthChecker - зависимость, умеющая проверить свою доступность
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler - health check сервиса. Без БД сервис неработоспособен,
// без кеша работает в деградированном режиме.
type HealthHandler struct {
	database HealthChecker
	cache    HealthChecker
	logger   *zap.Logger
}

func NewHealthHandler(database, cache HealthChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		database: database,
		cache:    cache,
		logger:   logger,
	}
}

// Health godoc
// @Summary Health check
// @Description Проверяет доступность базы данных и кеша
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
	defer cancel()

	resp := dto.HealthResponse{
		Status:     statusHealthy,
		Time:       time.Now(),
		Components: make(map[string]dto.ComponentHealth, 2),
	}

	if err := h.database.Health(ctx); err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		resp.Status = statusUnhealthy
		resp.Components["database"] = dto.ComponentHealth{Status: statusUnhealthy, Error: err.Error()}
	} else {
		resp.Components["database"] = dto.ComponentHealth{Status: statusHealthy}
	}

	if err := h.cache.Health(ctx); err != nil {
		if resp.Status == statusHealthy {
			resp.Status = statusDegraded
		}
		resp.Components["cache"] = dto.ComponentHealth{Status: statusDegraded, Error: err.Error()}
	} else {
		resp.Components["cache"] = dto.ComponentHealth{Status: statusHealthy}
	}

	code := fiber.StatusOK
	if resp.Status == statusUnhealthy {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(resp)
}
