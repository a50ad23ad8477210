// Package app wires configuration, storage, services and handlers into one
// runnable application.
package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/common"
	"github.com/ternarybob/seeker/internal/handlers"
	"github.com/ternarybob/seeker/internal/httpclient"
	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/services/cache"
	"github.com/ternarybob/seeker/internal/services/crawler"
	"github.com/ternarybob/seeker/internal/services/events"
	"github.com/ternarybob/seeker/internal/services/limiter"
	"github.com/ternarybob/seeker/internal/services/parser"
	"github.com/ternarybob/seeker/internal/services/search"
	"github.com/ternarybob/seeker/internal/services/state"
	"github.com/ternarybob/seeker/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB       *badger.BadgerDB
	KVStore  interfaces.KeyValueStore
	HTTPPool *httpclient.Pool

	// Core services
	EventService   interfaces.EventService
	RateLimiter    *limiter.RateLimiter
	ParserService  interfaces.PageParser
	CrawlerService interfaces.CrawlerService
	CacheService   interfaces.ResultCache
	StateTracker   interfaces.StateTracker
	SearchService  interfaces.SearchService

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	SearchHandler *handlers.SearchHandler
	CacheHandler  *handlers.CacheHandler
	WSHandler     *handlers.WebSocketHandler

	maintenance *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	db, err := badger.NewBadgerDB(logger, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db
	app.KVStore = badger.NewKVStorage(db, logger)

	app.EventService = events.NewService(logger)
	app.RateLimiter = limiter.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	app.HTTPPool = httpclient.NewPool(&cfg.HTTP)

	app.ParserService = parser.NewService(logger)
	app.CrawlerService = crawler.NewService(app.HTTPPool, app.RateLimiter, cfg.Crawler.FetchTimeout, logger)
	app.CacheService = cache.NewService(app.KVStore, cfg.Search.CacheTTL, logger)
	app.StateTracker = state.NewTracker(app.KVStore, cfg.Search.StateTTL, logger)

	app.SearchService = search.NewService(
		app.CrawlerService,
		app.ParserService,
		app.CacheService,
		app.StateTracker,
		app.EventService,
		cfg.Search.Concurrency,
		logger,
	)

	app.APIHandler = handlers.NewAPIHandler(logger)
	app.SearchHandler = handlers.NewSearchHandler(app.SearchService, app.StateTracker, cfg.Crawler.MaxPages, logger)
	app.CacheHandler = handlers.NewCacheHandler(app.CacheService, logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.StateTracker, app.EventService, cfg.Search.ProgressInterval, logger)

	if err := app.startMaintenance(); err != nil {
		app.Close()
		return nil, err
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("storage", cfg.Storage.Path).
		Msg("Application initialized")

	return app, nil
}

// startMaintenance schedules the periodic housekeeping job: expired cache
// cleanup, cache size enforcement and idle state sweeping.
func (a *App) startMaintenance() error {
	if !a.Config.Maintenance.Enabled {
		a.Logger.Debug().Msg("Maintenance schedule disabled")
		return nil
	}

	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(a.Config.Maintenance.Schedule, func() {
		ctx := context.Background()

		if removed, err := a.CacheService.CleanupExpired(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Cache cleanup failed")
		} else if removed > 0 {
			a.Logger.Debug().Int("removed", removed).Msg("Cache cleanup finished")
		}

		if report, err := a.CacheService.MonitorSize(ctx, a.Config.Search.CacheSizeLimitMB); err != nil {
			a.Logger.Warn().Err(err).Msg("Cache size check failed")
		} else if report.Status != "ok" {
			a.Logger.Warn().
				Float64("size_mb", report.CurrentSizeMB).
				Float64("limit_mb", report.MaxSizeMB).
				Msg("Cache size nearing limit")
		}

		if removed := a.StateTracker.Sweep(); removed > 0 {
			a.Logger.Debug().Int("removed", removed).Msg("State sweep finished")
		}

		if err := a.DB.RunValueLogGC(); err != nil {
			// badger returns an error when there is nothing to collect
			a.Logger.Debug().Err(err).Msg("Value log GC skipped")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", a.Config.Maintenance.Schedule, err)
	}

	c.Start()
	a.maintenance = c

	a.Logger.Info().
		Str("schedule", a.Config.Maintenance.Schedule).
		Msg("Maintenance schedule started")
	return nil
}

// Close shuts down components in reverse initialization order.
func (a *App) Close() {
	if a.maintenance != nil {
		a.maintenance.Stop()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.HTTPPool != nil {
		a.HTTPPool.CloseIdleConnections()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
	}

	a.Logger.Info().Msg("Application closed")
}
