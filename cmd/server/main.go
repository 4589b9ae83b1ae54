package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "findingmovie/searchservice/internal/api/http"
	"findingmovie/searchservice/internal/app"
	"findingmovie/searchservice/internal/metrics"
	"findingmovie/searchservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "movie-search")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "movie-search"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("searchTimeout", cfg.SearchTimeout),
		slog.String("tmdbBaseURL", cfg.TMDBBaseURL),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasMongo", strings.TrimSpace(cfg.MongoURI) != ""),
		slog.String("rosterFile", cfg.RosterFile),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.BuildPipeline(rootCtx, cfg, logger)
	if err != nil {
		logger.Error("pipeline init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pipeline.Close(closeCtx); err != nil {
			logger.Warn("close connections", slog.String("error", err.Error()))
		}
	}()

	handler := apihttp.NewServer(pipeline.Service,
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(float64(cfg.HTTPRateLimitRPS), cfg.HTTPRateLimitBurst),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A search can run up to the pipeline deadline before it answers.
		WriteTimeout: cfg.SearchTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	pipeline.Service.StartBackground(rootCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("movie search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("roster", pipeline.Roster.Source()),
		slog.Bool("tmdbEnabled", pipeline.TMDB.Enabled()),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("movie search service stopped")
}
