package server

import (
	"context"
	"log"

	"ai-critic-be/internal/bootstrap"
	"ai-critic-be/internal/config"
	"ai-critic-be/internal/pkg/serverutils"
	"ai-critic-be/internal/repository/contract"
	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/analysis/session"
	"ai-critic-be/pkg/suggestion"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

// errorStatuses maps engine errors that reach the HTTP layer unwrapped.
var errorStatuses = []serverutils.StatusFor{
	{Err: analysis.ErrNoWorkersAvailable, Status: fiber.StatusServiceUnavailable},
	{Err: analysis.ErrAllWorkersFailed, Status: fiber.StatusBadGateway},
	{Err: session.ErrManagerClosed, Status: fiber.StatusServiceUnavailable},
	{Err: contract.ErrSuggestionNotFound, Status: fiber.StatusNotFound},
	{Err: suggestion.ErrInvalidTransition, Status: fiber.StatusConflict},
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:    10 * 1024 * 1024, // 10MB
		ErrorHandler: serverutils.NewErrorHandler(container.Logger, errorStatuses...),
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("ok", fiber.Map{
			"active_analyses": container.Manager.Active(),
		}))
	})

	// Routes
	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

// Shutdown stops accepting requests, then lets the container drain
// running analyses.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.container.Close()
	return err
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	api := app.Group("/api")
	auth := serverutils.NewJwtMiddleware(cfg.App.JwtSecret)

	c.AnalysisController.RegisterRoutes(api, auth)
	c.DocumentController.RegisterRoutes(api, auth)
	c.CriticController.RegisterRoutes(api, auth)

	c.StreamHandler.RegisterRoutes(api)
}
