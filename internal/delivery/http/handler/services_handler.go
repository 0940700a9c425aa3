package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/pkg/errors"
	"github.com/seoul-location-services/internal/pkg/utils"
	"github.com/seoul-location-services/internal/pkg/validator"
	"github.com/seoul-location-services/internal/usecase"
	"github.com/seoul-location-services/internal/usecase/dto"
)

const groupByCategory = "category"

// ServicesHandler обрабатывает запросы поиска городских сервисов
type ServicesHandler struct {
	proximityUC *usecase.ProximityUseCase
	logger      *zap.Logger
}

// NewServicesHandler создает новый экземпляр ServicesHandler
func NewServicesHandler(proximityUC *usecase.ProximityUseCase, logger *zap.Logger) *ServicesHandler {
	return &ServicesHandler{
		proximityUC: proximityUC,
		logger:      logger,
	}
}

// Nearby godoc
// @Summary Find services near a point
// @Description Ищет объекты всех (или одной) категорий в радиусе от точки, отсортированные по расстоянию
// @Tags Services
// @Produce json
// @Param lat query number true "Широта центра" minimum(-90) maximum(90)
// @Param lon query number true "Долгота центра" minimum(-180) maximum(180)
// @Param radius query int false "Радиус в метрах" default(2000) minimum(100) maximum(10000)
// @Param category query string false "Категория (cultural_events, libraries, cultural_spaces, future_heritages, public_reservations)"
// @Param limit query int false "Максимум результатов" default(50) minimum(1) maximum(200)
// @Param group_by query string false "Группировка результатов" Enums(category)
// @Success 200 {object} utils.SuccessResponse{data=dto.LocationSearchResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/services/nearby [get]
func (h *ServicesHandler) Nearby(c *fiber.Ctx) error {
	var req dto.NearbySearchRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithCause(err))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	ctx := c.Context()
	center := domain.GeoPoint{Latitude: *req.Lat, Longitude: *req.Lon}

	if req.GroupBy == groupByCategory {
		var kinds []domain.SourceKind
		if req.Category != "" {
			kind, ok := domain.ParseSourceKind(req.Category)
			if !ok {
				return utils.SendError(c, errors.ErrInvalidCategory.WithDetails(map[string]interface{}{
					"category": req.Category,
				}))
			}
			kinds = []domain.SourceKind{kind}
		}

		results, err := h.proximityUC.SearchByCategories(ctx, center, req.Radius, kinds, req.Limit)
		if err != nil {
			h.logger.Warn("Grouped search failed", zap.Error(err))
			return utils.SendError(c, err)
		}
		resp := dto.NewCategoryGroupResponse(center, radiusOf(results), results)
		return utils.SendSuccess(c, resp, &utils.Meta{Total: resp.Total})
	}

	q, err := h.proximityUC.NewQuery(center.Latitude, center.Longitude, req.Radius, req.Category, req.Limit)
	if err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.proximityUC.Search(ctx, q)
	if err != nil {
		h.logger.Warn("Nearby search failed", zap.Error(err))
		return utils.SendError(c, err)
	}

	resp := dto.NewLocationSearchResponse(result, q.CategoryName())
	return utils.SendSuccess(c, resp, searchMeta(result, q.Limit))
}

// ByCategory godoc
// @Summary Find services of one category
// @Description Ищет объекты одной категории в радиусе с выбором сортировки
// @Tags Services
// @Produce json
// @Param category path string true "Категория"
// @Param lat query number true "Широта центра"
// @Param lon query number true "Долгота центра"
// @Param radius query int false "Радиус в метрах" default(2000)
// @Param limit query int false "Максимум результатов" default(50)
// @Param sort_by query string false "Сортировка" Enums(distance, name) default(distance)
// @Success 200 {object} utils.SuccessResponse{data=dto.LocationSearchResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/services/{category} [get]
func (h *ServicesHandler) ByCategory(c *fiber.Ctx) error {
	var req dto.CategorySearchRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithCause(err))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	q, err := h.proximityUC.NewQuery(*req.Lat, *req.Lon, req.Radius, c.Params("category"), req.Limit)
	if err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.proximityUC.Search(c.Context(), q)
	if err != nil {
		h.logger.Warn("Category search failed", zap.String("category", q.CategoryName()), zap.Error(err))
		return utils.SendError(c, err)
	}

	sorted, err := h.proximityUC.SortRecords(result.Records, req.SortBy)
	if err != nil {
		return utils.SendError(c, err)
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = usecase.SortByDistance
	}

	resp := dto.NewSortedSearchResponse(result, q.CategoryName(), sorted, sortBy)
	return utils.SendSuccess(c, resp, searchMeta(result, q.Limit))
}

// Categories godoc
// @Summary List service categories
// @Description Возвращает каталог категорий с количеством записей в каждой
// @Tags Services
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.CategoryListResponse}
// @Router /api/v1/services/categories/list [get]
func (h *ServicesHandler) Categories(c *fiber.Ctx) error {
	categories := h.proximityUC.Categories(c.Context())
	return utils.SendSuccess(c, dto.CategoryListResponse{
		Categories: categories,
		Total:      len(categories),
	}, nil)
}

func searchMeta(r *domain.SearchResult, limit int) *utils.Meta {
	hit := r.CacheHit
	return &utils.Meta{
		Total:     r.Total,
		Limit:     limit,
		TimeMSec:  r.ExecutionSeconds * 1000,
		RequestID: r.RequestID,
		CacheHit:  &hit,
	}
}

func radiusOf(results []domain.CategoryResult) int {
	if len(results) == 0 {
		return 0
	}
	return results[0].Result.RadiusMeters
}
