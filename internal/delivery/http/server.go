package http

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/config"
	"github.com/seoul-location-services/internal/delivery/http/handler"
	"github.com/seoul-location-services/internal/delivery/http/middleware"
	"github.com/seoul-location-services/internal/pkg/errors"
	"github.com/seoul-location-services/internal/pkg/metrics"
	"github.com/seoul-location-services/internal/pkg/utils"
)

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	servicesHandler *handler.ServicesHandler
	cacheHandler    *handler.CacheHandler
	healthHandler   *handler.HealthHandler
}

// NewServer - создание нового HTTP сервера
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	servicesHandler *handler.ServicesHandler,
	cacheHandler *handler.CacheHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Seoul Location Services",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:             app,
		config:          cfg,
		logger:          logger,
		servicesHandler: servicesHandler,
		cacheHandler:    cacheHandler,
		healthHandler:   healthHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(metrics.Middleware())
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)
	s.app.Get("/metrics", metrics.Handler())

	api := s.app.Group("/api/v1")

	api.Get("/health", s.healthHandler.Health)

	// статические пути регистрируются раньше /services/:category
	services := api.Group("/services")
	services.Get("/nearby", s.servicesHandler.Nearby)
	services.Get("/categories/list", s.servicesHandler.Categories)
	services.Get("/:category", s.servicesHandler.ByCategory)

	cache := api.Group("/cache")
	cache.Get("/stats", s.cacheHandler.Stats)
	cache.Delete("/", s.cacheHandler.InvalidateAll)
	cache.Delete("/:category", s.cacheHandler.InvalidateCategory)
}

// App - доступ к fiber.App для тестов
func (s *Server) App() *fiber.App {
	return s.app
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - ошибки роутинга и паники в том же конверте, что и ответы хендлеров
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return utils.SendError(c, appErr)
		}

		code := fiber.StatusInternalServerError
		message := errors.ErrInternalServer.Message

		var fiberErr *fiber.Error
		if stderrors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("HTTP Error",
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		return utils.SendError(c, errors.New(statusCode(code), message, code))
	}
}

// statusCode turns 404 into NOT_FOUND.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return errors.ErrInternalServer.Code
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
