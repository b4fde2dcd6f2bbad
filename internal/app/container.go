package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/api"
	"github.com/kapu/post-reactors/internal/config"
	"github.com/kapu/post-reactors/internal/logstream"
	"github.com/kapu/post-reactors/internal/metrics"
	"github.com/kapu/post-reactors/internal/provider"
	"github.com/kapu/post-reactors/internal/scrape"
	"github.com/kapu/post-reactors/internal/service/cache"
	"github.com/kapu/post-reactors/internal/service/database"
)

// Container holds the assembled services behind the HTTP server and the CLI.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Repo    *database.Repository
	Scraper *scrape.Service
	Logs    *logstream.Hub
	Metrics *metrics.Metrics

	server  *api.Server
	closers []func()
}

// Server returns the HTTP server wired to the container's services.
func (c *Container) Server() *api.Server {
	return c.server
}

// Close releases database and cache connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build connects to Postgres (and Redis when enabled), applies migrations when
// configured and wires the scrape pipeline. Provider credentials are not required
// here; they are checked on every launch.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Database
	postgresSvc, err := database.NewPostgresService(cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	closers = append(closers, func() {
		_ = postgresSvc.Close()
	})

	if cfg.Postgres.AutoMigrate {
		if err := database.MigrateUp(postgresSvc.GetDB(), logger); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	repo := database.NewRepository(postgresSvc, logger)

	// Cache is optional; without it there is no lock and no profile cache.
	var cacheSvc *cache.CacheService
	if cfg.Redis.Enabled {
		cacheSvc, err = cache.NewCacheService(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
			cacheSvc = nil
			err = nil
		} else {
			svc := cacheSvc
			closers = append(closers, func() {
				_ = svc.Close()
			})
		}
	}
	profileCache := cache.NewProfileCache(repo, cacheSvc, cfg.Scrape.ProfileCacheTTL, logger)

	// Observability
	m := metrics.New()
	hub := logstream.NewHub(0, logger)

	// Provider
	client := provider.NewClient(provider.ClientOptions{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
	}, logger)
	providerAPI := provider.Instrument(client, m)

	mapping, err := buildMapping(cfg.Provider)
	if err != nil {
		return nil, err
	}

	launcher := provider.NewLauncher(providerAPI, cfg.Provider.APIKey, cfg.Provider.AgentID, mapping, logger)
	poller := provider.NewPoller(providerAPI, cfg.Scrape.PollInterval, cfg.Scrape.MaxPollAttempts, logger)

	scraper := scrape.NewService(repo, launcher, poller, hub, m, scrape.Options{
		SessionCredential: cfg.LinkedIn.SessionCookie,
		LockTTL:           cfg.Scrape.LockTTL,
		BatchConcurrency:  cfg.Scrape.BatchConcurrency,
	}, logger).WithInvalidator(profileCache)
	if cacheSvc != nil {
		scraper = scraper.WithLocker(cacheSvc)
	}

	checks := map[string]api.HealthCheck{
		"postgres": postgresSvc.Ping,
	}
	if cacheSvc != nil {
		checks["redis"] = func(ctx context.Context) error {
			if !cacheSvc.IsConnected(ctx) {
				return fmt.Errorf("redis not reachable")
			}
			return nil
		}
	}

	server, err := api.NewServer(cfg.Server.Port, api.Deps{
		Projects:       repo,
		Profiles:       profileCache,
		Scraper:        scraper,
		Logs:           hub,
		Metrics:        m.Handler(),
		Checks:         checks,
		ProviderStatus: func() any { return client.Breaker().GetStatus() },
	}, cfg.Server.Debug, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create http server: %w", err)
	}

	if err := launcher.CheckConfig(cfg.LinkedIn.SessionCookie); err != nil {
		logger.Warn("Provider is not fully configured, scrapes will fail until it is", zap.Error(err))
	}

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Repo:    repo,
		Scraper: scraper,
		Logs:    hub,
		Metrics: m,
		server:  server,
		closers: closers,
	}, nil
}

// buildMapping prefers the YAML mapping file and falls back to the PROVIDER_* keys.
func buildMapping(cfg config.ProviderConfig) (provider.ArgumentMapping, error) {
	if cfg.MappingFile != "" {
		return provider.LoadMapping(cfg.MappingFile)
	}

	mapping := provider.DefaultMapping()
	mapping.Strategy = provider.Strategy(cfg.Strategy)
	if cfg.URLKey != "" {
		mapping.URLKey = cfg.URLKey
	}
	if cfg.SessionKey != "" {
		mapping.SessionKey = cfg.SessionKey
	}
	if cfg.CompanyKey != "" {
		mapping.CompanyKey = cfg.CompanyKey
	}
	if cfg.TargetKey != "" {
		mapping.TargetKey = cfg.TargetKey
	}
	mapping.CompanyURLFormat = cfg.CompanyURLFormat

	if err := mapping.Validate(); err != nil {
		return provider.ArgumentMapping{}, err
	}
	return mapping, nil
}
