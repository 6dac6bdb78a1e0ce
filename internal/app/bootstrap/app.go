package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/lifevault-relay/internal/api/router"
	appconfig "github.com/wolfman30/lifevault-relay/internal/config"
	"github.com/wolfman30/lifevault-relay/internal/observability/metrics"
	"github.com/wolfman30/lifevault-relay/internal/registry"
	"github.com/wolfman30/lifevault-relay/internal/relay"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

// App is the fully wired relay shared by the HTTP server and Lambda binaries.
type App struct {
	Handler  http.Handler
	Registry *registry.Registry
	Relay    *relay.Service

	cleanups []func()
}

// Close releases store and provider connections in reverse order.
func (a *App) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}

// BuildApp wires config into the registry, relay and router.
func BuildApp(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	relayMetrics := metrics.NewRelayMetrics(promReg)

	app := &App{}
	store, closeStore, err := BuildCallerStore(ctx, cfg, loadAWS, logger)
	if err != nil {
		return nil, err
	}
	app.cleanups = append(app.cleanups, closeStore)

	client, closeClient, err := BuildCompletionClient(ctx, cfg, loadAWS, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.cleanups = append(app.cleanups, closeClient)

	app.Registry = registry.New(store, logger, registry.WithMetrics(relayMetrics))
	app.Relay = relay.NewService(app.Registry, client, relay.Options{
		Model:       cfg.AIModel,
		MaxTokens:   relay.DefaultMaxTokens,
		Temperature: relay.DefaultTemperature,
		Timeout:     cfg.CompletionTimeout,
	}, logger, relayMetrics)

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}

	app.Handler = router.New(&router.Config{
		Logger:             logger,
		RegistryHandler:    registry.NewHandler(app.Registry, logger),
		RelayHandler:       relay.NewHandler(app.Relay, logger, relayMetrics),
		Registry:           app.Registry,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		ChatRateLimitRPS:   cfg.ChatRateLimitRPS,
		ChatRateLimitBurst: cfg.ChatRateLimitBurst,
	})
	return app, nil
}
