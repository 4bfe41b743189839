// @title Forecast Pipeline API
// @version 1.0
// @description Upload tabular data, forecast a series with SARIMA and export the result.
// @host localhost:8080
// @BasePath /api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"go-forecast-pipeline/internal/api"
	"go-forecast-pipeline/internal/api/handler"
	"go-forecast-pipeline/internal/config"
	"go-forecast-pipeline/internal/logging"
	"go-forecast-pipeline/internal/metrics"
	"go-forecast-pipeline/internal/pipeline"
	"go-forecast-pipeline/internal/presentation"
	"go-forecast-pipeline/internal/session"
	"go-forecast-pipeline/internal/store"
	"go-forecast-pipeline/internal/telemetry"
	"go-forecast-pipeline/pkg/router"
)

var version = "dev"

// rateLimitClients bounds the per-client limiter cache.
const rateLimitClients = 10000

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "forecast-server",
		Short:        "HTTP service for SARIMA forecasts of uploaded tables",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file (YAML)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	log := logging.WithComponent(logger, "server")

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer db.Close()

	sessions, closeSessions, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	runner := pipeline.NewRunner(pipeline.SARIMAForecaster{MaxIter: cfg.Forecast.MaxIter},
		pipeline.WithRecorder(db),
		pipeline.WithObservers(m),
		pipeline.WithMaxSteps(cfg.Forecast.MaxSteps),
		pipeline.WithLogger(logger),
	)
	h := handler.New(handler.Deps{
		Sessions:    sessions,
		Runs:        db,
		Runner:      runner,
		Metrics:     m,
		Voice:       presentation.NewVoice(cfg.Voice.Enabled, logger),
		Logger:      logger,
		DefaultSpec: cfg.Forecast.DefaultSpec,
		Alpha:       cfg.Forecast.Alpha,
		MaxUpload:   cfg.Server.MaxUploadMB << 20,
	})

	r := router.New(logger)
	r.Observe(m.ObserveRequest)
	if cfg.Server.RateLimit > 0 {
		limit, err := router.ClientRateLimit(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst, rateLimitClients)
		if err != nil {
			return err
		}
		r.Use(limit)
	}
	api.RegisterRoutes(r, h, m.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":        httpServer.Addr,
			"environment": cfg.Environment,
			"sessions":    cfg.Session.Backend,
			"version":     version,
		}).Info("Starting forecast server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("Tracer shutdown error")
	}
	log.Info("Server stopped")
	return nil
}

// newSessionStore builds the configured session backend and its cleanup.
func newSessionStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rs := session.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Session.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr(), err)
		}
		logger.WithField("addr", cfg.Redis.Addr()).Info("Using redis session store")
		return rs, func() { client.Close() }, nil
	default:
		ms, err := session.NewMemoryStore(cfg.Session.Size, cfg.Session.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create session store: %w", err)
		}
		return ms, func() {}, nil
	}
}
