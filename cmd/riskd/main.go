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

	"mindrisk/internal/cfg"
	"mindrisk/internal/explain"
	"mindrisk/internal/metrics"
	"mindrisk/internal/model"
	"mindrisk/internal/serve"
	"mindrisk/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	manager, err := model.NewManager(c.ModelDir)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open model directory")
	}

	bundle, err := manager.LoadActive()
	if err != nil {
		if errors.Is(err, model.ErrNotTrained) {
			log.Fatal().Msg("no trained model available, run the training pipeline first")
		}
		log.Fatal().Err(err).Msg("could not load active model")
	}
	log.Info().
		Str("version", bundle.Meta.Version).
		Str("kind", bundle.Meta.Kind).
		Time("trained_at", bundle.Meta.TrainedAt).
		Msg("active model loaded")

	importance := loadImportance(c, bundle.Meta.Version)

	srv, err := serve.New(bundle, importance, m, c.DriftThreshold, c.DriftCooldown, serve.Config{
		Port:           c.ListenPort,
		Threshold:      c.ProbThreshold,
		TopK:           c.TopK,
		RequestTimeout: c.RequestTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("could not build prediction server")
	}

	startMetricsServer(ctx, c.MetricsPort)
	startModelAgeTicker(ctx, m, bundle.Meta.TrainedAt)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("prediction server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, srv)
}

// loadImportance reads the feature importance recorded for the active
// model version, if the run registry has one.
func loadImportance(c cfg.Settings, version string) []explain.FeatureImportance {
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("run registry unavailable, /importance will be empty")
		return nil
	}
	defer store.Close()

	ranking, err := store.GetImportance(version)
	if err != nil {
		log.Warn().Err(err).Msg("could not read feature importance")
		return nil
	}
	return ranking
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, port int) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// startModelAgeTicker keeps the model age gauge current.
func startModelAgeTicker(ctx context.Context, m *metrics.Metrics, trainedAt time.Time) {
	m.ModelAge.Set(time.Since(trainedAt).Seconds())
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.ModelAge.Set(time.Since(trainedAt).Seconds())
			}
		}
	}()
}

// waitForShutdown waits for shutdown signals and drains the server.
func waitForShutdown(ctx context.Context, srv *serve.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
