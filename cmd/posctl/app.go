package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"storepos/internal/backend"
	"storepos/internal/cache"
	"storepos/internal/config"
	"storepos/internal/draft"
	"storepos/internal/gateway"
	"storepos/internal/logging"
	"storepos/internal/metrics"
	"storepos/internal/returns"
	"storepos/internal/session"
)

const loginHint = "please run posctl login"

type app struct {
	out     io.Writer
	errOut  io.Writer
	logger  *zap.Logger
	session *session.Store
	api     *backend.Services
	loader  *draft.Loader
	pricing draft.Pricing
	policy  returns.Policy

	hintOnce sync.Once
	closers  []func() error

	metrics     *prometheus.Registry
	metricsFile string
}

func newApp(ctx context.Context, cfg config.Config, stdout io.Writer, stderr io.Writer) (*app, error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{
		out:     stdout,
		errOut:  stderr,
		logger:  logger,
		pricing: draft.NewPricing(cfg.TaxRate, cfg.DiscountRate),
		policy:  returns.Policy{LateFeePerDayCents: cfg.LateFeePerDayCents},

		metricsFile: cfg.MetricsFile,
	}

	// One redis connection serves both the token storage and the
	// reference-data cache when an address is configured.
	var refCache cache.Cache = cache.Noop{}
	var redisCache *cache.Redis
	if cfg.RedisAddr != "" {
		redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using noop cache", zap.Error(err))
			_ = redisCache.Close()
			redisCache = nil
		} else {
			refCache = redisCache
			a.closers = append(a.closers, redisCache.Close)
		}
	}

	var storage session.TokenStorage
	if redisCache != nil {
		storage, err = session.OpenStorage(cfg, redisCache.Client())
	} else {
		storage, err = session.OpenStorage(cfg, nil)
	}
	if err != nil {
		a.close()
		return nil, err
	}
	a.session = session.NewStore(storage, logger.Named("session"))
	a.session.LoadFromStorage(ctx)

	client, err := gateway.New(gateway.Options{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		Session:   a.session,
		Navigator: gateway.NavigatorFunc(a.redirectToLogin),
		Logger:    logger.Named("gateway"),
		Metrics:   a.clientMetrics(),
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.api = backend.New(client, a.session, logger.Named("backend"))
	a.loader = draft.NewLoader(a.api.Inventory, a.api.Customers, refCache, cfg.CacheTTL, logger.Named("loader"))
	return a, nil
}

// guard lets a protected command through only with a live session.
func (a *app) guard() bool {
	if a.session.IsAuthenticated() {
		return true
	}
	a.redirectToLogin()
	return false
}

func (a *app) redirectToLogin() {
	a.hintOnce.Do(func() { fmt.Fprintln(a.errOut, loginHint) })
}

// clientMetrics is nil unless a metrics file is configured; the gateway
// skips observation on a nil collector.
func (a *app) clientMetrics() *metrics.ClientMetrics {
	if a.metricsFile == "" {
		return nil
	}
	a.metrics = prometheus.NewRegistry()
	return metrics.NewClientMetrics(a.metrics)
}

func (a *app) close() {
	if a.metrics != nil {
		// Written for the node_exporter textfile collector.
		if err := prometheus.WriteToTextfile(a.metricsFile, a.metrics); err != nil {
			a.logger.Warn("write metrics file", zap.String("path", a.metricsFile), zap.Error(err))
		}
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Debug("close", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
