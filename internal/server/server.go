package server

import (
	"time"

	"stylomail/internal/config"
	"stylomail/internal/handlers"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Services holds the wired application services the routes depend on.
type Services struct {
	Ingest    handlers.IngestService
	Searcher  handlers.SimilaritySearcher
	Assembler handlers.ContextAssembler
	Generator handlers.ReplyGenerator
	Sender    handlers.DraftSender
}

// Server represents the application server
type Server struct {
	echo     *echo.Echo
	db       *sqlx.DB
	config   *config.Config
	logger   zerolog.Logger
	services Services
}

// New creates a new server instance
func New(cfg *config.Config, db *sqlx.DB, logger zerolog.Logger, services Services) *Server {
	return &Server{
		config:   cfg,
		db:       db,
		logger:   logger,
		services: services,
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	// Hide Echo banner
	s.echo.HideBanner = true

	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Health endpoints (keep at root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.db))

	api.GET("/", handlers.RootHandler(s.config.Version))

	// Email ingestion and retrieval
	api.POST("/emails", handlers.AddEmailHandler(s.services.Ingest))
	api.POST("/emails/upload", handlers.UploadEMLHandler(s.services.Ingest))
	api.POST("/emails/import", handlers.ImportFromStorageHandler(s.services.Ingest, s.config.EmailImportPath))
	api.POST("/emails/search", handlers.SearchHandler(s.services.Searcher))

	// Reply generation
	api.POST("/generate", handlers.GenerateReplyHandler(s.services.Assembler, s.services.Generator))
	api.POST("/generate/send", handlers.SendDraftHandler(s.services.Sender))

	// Admin
	api.POST("/admin/reconcile", handlers.ReconcileHandler(s.services.Ingest))
	api.POST("/admin/import-job", handlers.TriggerImportJobHandler(s.config))
	api.GET("/admin/import-job/:name", handlers.ImportJobStatusHandler())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}
