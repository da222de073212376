package di

import (
	"fmt"

	"BattPulse/internal/domain/repository"
	"BattPulse/internal/handler/api"
	internalrepo "BattPulse/internal/repository"
	"BattPulse/internal/service/notify"
	"BattPulse/internal/service/ratelimit"
	"BattPulse/internal/usecase"
	"BattPulse/pkg/cache"
	"BattPulse/pkg/config"
	xlogger "BattPulse/pkg/logger"
	"BattPulse/pkg/metrics"
	"BattPulse/pkg/server"
)

// ProvideLogger creates the application logger with the diagnostics
// collector attached.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	l, err := xlogger.New(&xlogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AddCollector(&xlogger.CollectionConfig{})
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCacheService selects the parse cache backend from config.
func ProvideCacheService(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MaxSize),
		), nil
	case "redis":
		return cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
	case "layered":
		redis, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(redis,
			cache.WithLayeredMemorySize(cfg.Cache.MaxSize),
		), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

// ProvideDatasetStore creates the in-memory dataset store.
func ProvideDatasetStore() repository.DatasetStore {
	return internalrepo.NewMemoryDatasetStore()
}

// ProvideAnalyzer creates the dataset analysis use case.
func ProvideAnalyzer(
	store repository.DatasetStore,
	c cache.Service,
	m repository.Metrics,
	l *xlogger.Logger,
	cfg *config.Config,
) *usecase.DatasetAnalyzer {
	return usecase.NewDatasetAnalyzer(store, c, m, l, cfg.Cache.TTL)
}

// ProvideLimiter creates the per-client upload limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Upload.RateCapacity, cfg.Upload.RatePerSecond)
}

// ProvideHub creates the WebSocket event hub.
func ProvideHub(l *xlogger.Logger) *notify.Hub {
	return notify.NewHub(l)
}

// ProvideDatasetsHandler creates the HTTP handler for the analysis API.
func ProvideDatasetsHandler(
	l *xlogger.Logger,
	analyzer *usecase.DatasetAnalyzer,
	limiter *ratelimit.Limiter,
	hub *notify.Hub,
	cfg *config.Config,
) *api.DatasetsEchoHandler {
	return api.NewDatasetsEchoHandler(
		l,
		analyzer,
		limiter,
		hub,
		api.UploadLimits{
			MaxSizeBytes: cfg.Upload.MaxSizeBytes,
			Extension:    cfg.Upload.Extension,
		},
		cfg.Display.MaxSeriesSamples,
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *xlogger.Logger,
	handler *api.DatasetsEchoHandler,
	c cache.Service,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, handler, c, limiter)
}
