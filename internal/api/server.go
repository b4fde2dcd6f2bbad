package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the collaborators behind the HTTP routes.
type Deps struct {
	Projects Projects
	Profiles Profiles
	Scraper  Scraper
	Logs     LogSource
	Metrics  http.Handler
	Checks   map[string]HealthCheck
	// ProviderStatus is reported under "provider" on /health when set.
	ProviderStatus func() any
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, debug bool, logger *zap.Logger) (*gin.Engine, error) {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ui, err := newUI(deps.Projects, logger)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		projects: deps.Projects,
		profiles: deps.Profiles,
		scraper:  deps.Scraper,
		logs:     deps.Logs,
		checks:   deps.Checks,
		status:   deps.ProviderStatus,
		logger:   logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))
	SetupRoutes(router, h, ui, deps.Metrics)
	return router, nil
}

// SetupRoutes registers the UI, JSON API, log stream and operational endpoints.
func SetupRoutes(router *gin.Engine, h *Handler, ui *UI, metrics http.Handler) {
	router.GET("/", ui.Index)
	router.GET("/health", h.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	router.GET("/ws/logs", h.StreamLogs)

	api := router.Group("/api")
	api.GET("/projects", h.ListProjects)
	api.POST("/projects", h.CreateProject)
	api.GET("/projects/:id", h.GetProject)
	api.POST("/scrape", h.Scrape)
	api.POST("/scrape/batch", h.ScrapeBatch)
	api.GET("/posts/:id/profiles", h.ListProfiles)
	api.GET("/estimate", h.Estimate)
	api.GET("/logs", h.Logs)
	api.DELETE("/logs", h.ClearLogs)
}

func NewServer(port int, deps Deps, debug bool, logger *zap.Logger) (*Server, error) {
	router, err := NewRouter(deps, debug, logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// no WriteTimeout: a scrape request stays open for the whole poll window
		},
		logger: logger,
	}, nil
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
