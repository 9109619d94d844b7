// Command subscriptiond runs the OPC UA server-side Subscription core as a
// standalone service: one Manager per session, fed by a YAML node/subscription
// manifest and exposing health, metrics and diagnostics over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexus-edge/opcua-subscriptions/internal/adapter/addressspace"
	"github.com/nexus-edge/opcua-subscriptions/internal/adapter/config"
	"github.com/nexus-edge/opcua-subscriptions/internal/adapter/loopback"
	"github.com/nexus-edge/opcua-subscriptions/internal/domain"
	"github.com/nexus-edge/opcua-subscriptions/internal/health"
	"github.com/nexus-edge/opcua-subscriptions/internal/metrics"
	"github.com/nexus-edge/opcua-subscriptions/internal/service"
	"github.com/nexus-edge/opcua-subscriptions/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

const (
	serviceName    = "subscriptiond"
	serviceVersion = "1.0.0"
)

// processConfig is the viper-resolved process-level configuration: HTTP
// port, logging and Publish Engine tuning. Node/subscription data lives
// in the separate YAML manifest loaded by internal/adapter/config.
type processConfig struct {
	HTTPPort         int
	LogLevel         string
	LogFormat        string
	ManifestPath     string
	ShutdownTimeout  time.Duration
	PublishQueueSize int
}

func loadProcessConfig() processConfig {
	v := viper.New()
	v.SetEnvPrefix("SUBSCRIPTIOND")
	v.AutomaticEnv()

	v.SetDefault("http_port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("manifest_path", "manifest.yaml")
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("publish_queue_size", 16)

	if configFile := os.Getenv("SUBSCRIPTIOND_CONFIG_FILE"); configFile != "" {
		v.SetConfigFile(configFile)
		_ = v.ReadInConfig() // missing/invalid file falls back to defaults + env
	}

	return processConfig{
		HTTPPort:         v.GetInt("http_port"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
		ManifestPath:     v.GetString("manifest_path"),
		ShutdownTimeout:  v.GetDuration("shutdown_timeout"),
		PublishQueueSize: v.GetInt("publish_queue_size"),
	}
}

func main() {
	cfg := loadProcessConfig()

	logger := logging.New(serviceName, serviceVersion, cfg.LogLevel, cfg.LogFormat)
	logger.Info().Msg("starting subscription core")

	manifest, err := config.Load(cfg.ManifestPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load subscription manifest")
	}
	logger.Info().
		Int("nodes", len(manifest.Nodes)).
		Int("subscriptions", len(manifest.Subscriptions)).
		Msg("manifest loaded")

	space, err := addressspace.NewFromManifest(manifest)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build address space from manifest")
	}

	metricsRegistry := metrics.NewRegistry()
	transport := loopback.NewTransport(cfg.PublishQueueSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	managers := make(map[string]*service.Manager)
	nextSubscriptionID := uint32(0)

	for _, subCfg := range manifest.Subscriptions {
		mgr, ok := managers[subCfg.SessionID]
		if !ok {
			mgr = service.NewManager(service.ManagerConfig{
				SessionID:       subCfg.SessionID,
				ShutdownTimeout: cfg.ShutdownTimeout,
			}, space, transport, logger, metricsRegistry)
			if err := mgr.Start(ctx); err != nil {
				logger.Fatal().Err(err).Str("session_id", subCfg.SessionID).Msg("failed to start subscription manager")
			}
			managers[subCfg.SessionID] = mgr
		}

		nextSubscriptionID++
		_, err := mgr.CreateSubscription(domain.SubscriptionConfig{
			ID:                         nextSubscriptionID,
			SessionID:                  subCfg.SessionID,
			Priority:                   byte(subCfg.Priority),
			PublishingInterval:         subCfg.PublishingInterval,
			MaxKeepAliveCount:          subCfg.MaxKeepAliveCount,
			LifeTimeCount:              subCfg.LifeTimeCount,
			MaxNotificationsPerPublish: subCfg.MaxNotificationsPerPublish,
			PublishingEnabled:          subCfg.PublishingEnabled,
		}, nil)
		if err != nil {
			logger.Error().Err(err).Str("session_id", subCfg.SessionID).Msg("failed to pre-create subscription from manifest")
		}
	}

	healthChecker := health.NewChecker(serviceName, serviceVersion, aPrimaryManager(managers), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthChecker.HealthHandler)
	mux.HandleFunc("/health/live", healthChecker.LiveHandler)
	mux.HandleFunc("/health/ready", healthChecker.ReadyHandler)
	mux.HandleFunc("/subscriptions", healthChecker.DiagnosticsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.HTTPPort).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	for sessionID, mgr := range managers {
		if err := mgr.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("session_id", sessionID).Msg("error stopping subscription manager")
		}
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error shutting down HTTP server")
	}

	logger.Info().Msg("subscription core shutdown complete")
}

// aPrimaryManager picks one manager to back the health/diagnostics surface.
// A multi-session deployment would aggregate across all of them; this
// service keeps that simple until a real multi-session health model is
// needed. A deployment with no pre-seeded subscriptions reports idleStatus
// instead of reaching for a manager that was never started.
func aPrimaryManager(managers map[string]*service.Manager) health.ManagerStatus {
	for _, mgr := range managers {
		return mgr
	}
	return idleStatus{}
}

// idleStatus backs /health when the manifest pre-created no subscriptions
// for any session, so there is no real Manager yet to report on.
type idleStatus struct{}

func (idleStatus) Started() bool                { return false }
func (idleStatus) ActiveSubscriptionCount() int  { return 0 }
func (idleStatus) Diagnostics() []any            { return nil }
