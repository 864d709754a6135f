// Package app assembles the tracker from configuration. Every command uses
// it so the daemon and both terminal clients run the same stack.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/unklstewy/opensky-utah/internal/cache"
	"github.com/unklstewy/opensky-utah/internal/db"
	"github.com/unklstewy/opensky-utah/internal/netmon"
	"github.com/unklstewy/opensky-utah/internal/sample"
	"github.com/unklstewy/opensky-utah/internal/service"
	"github.com/unklstewy/opensky-utah/pkg/config"
	"github.com/unklstewy/opensky-utah/pkg/opensky"
	"github.com/unklstewy/opensky-utah/pkg/region"
)

// Runtime holds the wired components.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Client  *opensky.Client
	Fetcher service.Fetcher
	Monitor *netmon.Monitor
	Cache   cache.Store
	Service *service.Service

	database *db.DB
}

// Build creates every component without starting anything.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := opensky.NewClient(opensky.Config{
		BaseURL:     cfg.OpenSky.BaseURL,
		Bounds:      region.Utah,
		Timeout:     cfg.OpenSky.RequestTimeout(),
		MinInterval: cfg.OpenSky.MinRequestInterval(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSky client: %w", err)
	}

	retry := opensky.DefaultRetryConfig()
	retry.MaxRetries = cfg.OpenSky.RateLimitRetries
	retry.MaxDelay = cfg.OpenSky.MaxRetryWait()

	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Client:  client,
		Fetcher: opensky.NewRetryingFetcher(client, retry, logger),
		Monitor: netmon.New(
			netmon.DialProbe(cfg.Network.ProbeAddress, cfg.Network.ProbeTimeout()),
			cfg.Network.ProbeInterval(),
			logger,
		),
	}

	if err := rt.openCache(ctx); err != nil {
		return nil, err
	}

	rt.Service, err = service.New(service.Options{
		Fetcher:       rt.Fetcher,
		Cache:         rt.Cache,
		Connectivity:  rt.Monitor,
		SamplePayload: sample.Payload(),
		Interval:      cfg.Refresh.RefreshInterval(),
		Logger:        logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	return rt, nil
}

func (rt *Runtime) openCache(ctx context.Context) error {
	switch rt.Config.Cache.Backend {
	case "postgres":
		database, err := db.ConnectWithRetry(ctx, rt.Config.Database, 3, time.Second, rt.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.InitSchema(ctx); err != nil {
			database.Close()
			return err
		}
		rt.database = database
		rt.Cache = db.NewSnapshotStore(database, rt.Logger)
	default:
		path, err := rt.Config.Cache.CacheFilePath()
		if err != nil {
			return err
		}
		rt.Cache = cache.NewFileStore(path, rt.Logger)
	}
	rt.Logger.Info("cache ready", "backend", rt.Config.Cache.Backend)
	return nil
}

// Start seeds connectivity with one probe, loads the initial data and starts
// the probe loop, plus auto-refresh when configured.
func (rt *Runtime) Start(ctx context.Context) {
	rt.Monitor.Probe(ctx)
	rt.Monitor.Start(ctx)
	rt.Service.LoadInitialData(ctx)
	if rt.Config.Refresh.AutoStart {
		rt.Service.StartAutoRefresh(ctx)
	}
}

// Healthy reports whether the cache backend is usable. Only the postgres
// backend can fail; the file store is always healthy.
func (rt *Runtime) Healthy(ctx context.Context) error {
	if rt.database == nil {
		return nil
	}
	if err := db.HealthCheck(ctx, rt.database); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

// Close stops background work and releases the database, if any.
func (rt *Runtime) Close() {
	if rt.Service != nil {
		rt.Service.Close()
	}
	rt.Monitor.Stop()
	if rt.database != nil {
		rt.database.Close()
	}
}
