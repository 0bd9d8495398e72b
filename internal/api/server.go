package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/api/handlers"
	"github.com/amaumene/tvarr/internal/api/middleware"
	"github.com/amaumene/tvarr/internal/config"
	"github.com/amaumene/tvarr/internal/models"
)

// Server represents the HTTP server
type Server struct {
	app     *fiber.App
	addr    string
	baseCtx context.Context
	logger  *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	db *models.Database,
	shows handlers.ShowManager,
	ranges handlers.RangeDownloader,
	checks handlers.CheckRunner,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		addr:    ":" + cfg.ServerPort,
		baseCtx: context.Background(),
		logger:  logger,
	}

	// No write timeout: manual checks and season ranges answer when they finish
	s.app = fiber.New(fiber.Config{
		AppName:               "tvarr",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		IdleTimeout:           60 * time.Second,
	})

	s.app.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(s.baseCtx)
		return c.Next()
	})
	s.app.Use(middleware.Logging(logger))

	s.setupRoutes(db, shows, ranges, checks)
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(db *models.Database, shows handlers.ShowManager, ranges handlers.RangeDownloader, checks handlers.CheckRunner) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	s.app.Get("/health", healthHandler.Get)

	statusHandler := handlers.NewStatusHandler(db, checks, s.logger)
	s.app.Get("/status", statusHandler.Get)

	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")

	showsHandler := handlers.NewShowsHandler(shows, ranges, s.logger)
	api.Get("/shows", showsHandler.List)
	api.Post("/shows", showsHandler.Create)
	api.Patch("/shows/:id", showsHandler.Update)
	api.Delete("/shows/:id", showsHandler.Delete)
	api.Post("/shows/:id/seasons/:season/download", showsHandler.DownloadSeason)

	checkHandler := handlers.NewCheckHandler(checks, s.logger)
	api.Post("/check", checkHandler.Check)
	api.Put("/autocheck", checkHandler.SetAutoCheck)
}

// Start starts the HTTP server. Requests run under ctx, so cancelling it aborts
// in-flight checks before the server shuts down.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx
	s.logger.WithField("port", s.addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}
