package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-insights-service/internal/adapter/census"
	httpadapter "github.com/couchcryptid/weather-insights-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-insights-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-insights-service/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-insights-service/internal/adapter/nws"
	"github.com/couchcryptid/weather-insights-service/internal/config"
	"github.com/couchcryptid/weather-insights-service/internal/domain"
	"github.com/couchcryptid/weather-insights-service/internal/gateway"
	"github.com/couchcryptid/weather-insights-service/internal/intent"
	"github.com/couchcryptid/weather-insights-service/internal/observability"
	"github.com/couchcryptid/weather-insights-service/internal/orchestrator"
	"github.com/couchcryptid/weather-insights-service/internal/session"
)

func main() {
	// Local development convenience; the file is absent in deployment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	gw := gateway.New(cfg.ProviderTimeout, logger, metrics)

	nwsClient := nws.NewClient(cfg.NWSBaseURL, cfg.NWSUserAgent, cfg.ProviderTimeout, logger)
	gw.Register(nws.NewForecastProvider(nwsClient))
	gw.Register(nws.NewAlertsProvider(nwsClient))
	gw.Register(nws.NewTrackProvider(nwsClient))

	censusClient := census.NewClient(cfg.CensusBaseURL, cfg.ProviderTimeout, logger)
	gw.Register(census.NewDemographicsProvider(censusClient))
	gw.Register(census.NewHistoricalProvider(censusClient))

	// Location resolution, place search, and routing are feature-flagged via
	// MAPBOX_ENABLED / MAPBOX_TOKEN. Without them the service still answers
	// coordinate-bearing queries but reports not-ready, since text locations
	// cannot be resolved.
	if cfg.MapboxEnabled {
		mapboxClient := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger)
		resolver := mapbox.NewCachedResolver(mapboxClient, cfg.MapboxCacheSize, metrics)
		gw.Register(mapbox.NewLocationProvider(resolver))
		gw.Register(mapbox.NewResourcesProvider(mapboxClient))
		gw.Register(mapbox.NewDirectionsProvider(mapboxClient, resolver))
		logger.Info("mapbox providers enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Warn("mapbox providers disabled; location resolution unavailable")
	}

	sessions := session.NewStore(cfg.SessionIdleTimeout, clockwork.NewRealClock(), logger, metrics)
	classifier := intent.New()
	engine := domain.NewEngine(cfg.RiskWeights, cfg.ResourceConstants)
	classes := domain.NewEventClassTable(cfg.EventClassOverride)

	var publisher orchestrator.Publisher
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaAssessmentTopic, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = kp
		metrics.PublisherEnabled.Set(1)
		logger.Info("assessment publishing enabled", "topic", cfg.KafkaAssessmentTopic)
	}

	core := orchestrator.New(sessions, gw, classifier, engine, classes, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, core, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
