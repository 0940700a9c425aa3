package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/pkg/errors"
	"github.com/seoul-location-services/internal/pkg/utils"
	"github.com/seoul-location-services/internal/pkg/validator"
	"github.com/seoul-location-services/internal/usecase"
	"github.com/seoul-location-services/internal/usecase/dto"
)

// CacheHandler - управление кешем результатов поиска
type CacheHandler struct {
	cache    *usecase.CacheLayer
	registry *domain.SourceRegistry
	logger   *zap.Logger
}

func NewCacheHandler(cache *usecase.CacheLayer, registry *domain.SourceRegistry, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{
		cache:    cache,
		registry: registry,
		logger:   logger,
	}
}

// Stats godoc
// @Summary Cache statistics
// @Description Возвращает счетчики попаданий и промахов кеша с момента запуска
// @Tags Cache
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.CacheStatsResponse}
// @Router /api/v1/cache/stats [get]
func (h *CacheHandler) Stats(c *fiber.Ctx) error {
	return utils.SendSuccess(c, dto.CacheStatsResponse{
		CacheStats: h.cache.Stats(),
		TTLSeconds: int(h.cache.TTL().Seconds()),
		KeyPattern: h.cache.AllKeysPattern(),
	}, nil)
}

// InvalidateAll godoc
// @Summary Invalidate cache entries
// @Description Удаляет ключи кеша по glob-шаблону; по умолчанию удаляется весь кеш сервиса
// @Tags Cache
// @Produce json
// @Param pattern query string false "Glob-шаблон ключей, должен начинаться с префикса сервиса"
// @Success 200 {object} utils.SuccessResponse{data=dto.CacheInvalidateResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/cache [delete]
func (h *CacheHandler) InvalidateAll(c *fiber.Ctx) error {
	var req dto.CacheInvalidateRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithCause(err))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	pattern := req.Pattern
	if pattern == "" {
		pattern = h.cache.AllKeysPattern()
	}
	// чужие ключи в общем Redis не трогаем
	if !strings.HasPrefix(pattern, h.cache.Prefix()+":") {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"pattern":  pattern,
			"required": h.cache.Prefix() + ":",
		}))
	}

	deleted := h.cache.InvalidatePattern(c.Context(), pattern)
	h.logger.Info("Cache invalidated via API", zap.String("pattern", pattern), zap.Int("deleted", deleted))

	return utils.SendSuccess(c, dto.CacheInvalidateResponse{
		Pattern:     pattern,
		DeletedKeys: deleted,
	}, nil)
}

// InvalidateCategory godoc
// @Summary Invalidate one category
// @Description Удаляет записи кеша категории и все смешанные выдачи, которые могут ее содержать
// @Tags Cache
// @Produce json
// @Param category path string true "Категория"
// @Success 200 {object} utils.SuccessResponse{data=dto.CacheInvalidateResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/cache/{category} [delete]
func (h *CacheHandler) InvalidateCategory(c *fiber.Ctx) error {
	kind, ok := h.registry.Parse(c.Params("category"))
	if !ok {
		return utils.SendError(c, errors.ErrInvalidCategory.WithDetails(map[string]interface{}{
			"category":  c.Params("category"),
			"available": h.registry.Kinds(),
		}))
	}

	deleted := h.cache.InvalidateKind(c.Context(), kind)
	h.logger.Info("Category cache invalidated via API", zap.String("category", string(kind)), zap.Int("deleted", deleted))

	return utils.SendSuccess(c, dto.CacheInvalidateResponse{
		Pattern:     h.cache.Prefix() + ":*:" + string(kind),
		Category:    string(kind),
		DeletedKeys: deleted,
	}, nil)
}
