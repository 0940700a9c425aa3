package utils

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"

	"github.com/seoul-location-services/internal/pkg/errors"
)

type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error *errors.AppError `json:"error"`
}

type Meta struct {
	Total     int     `json:"total,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	TimeMSec  float64 `json:"time_ms,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
	CacheHit  *bool   `json:"cache_hit,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendError writes the AppError found in err's chain, or a 500 for anything else.
func SendError(c *fiber.Ctx, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return c.Status(appErr.StatusCode).JSON(ErrorResponse{
			Error: appErr,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: errors.ErrInternalServer,
	})
}
