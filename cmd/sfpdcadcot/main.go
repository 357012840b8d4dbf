package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/sfpd-cad-cot/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/sfpd-cad-cot/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/sfpd-cad-cot/internal/adapter/kafka"
	redisadapter "github.com/couchcryptid/sfpd-cad-cot/internal/adapter/redis"
	"github.com/couchcryptid/sfpd-cad-cot/internal/adapter/stdout"
	"github.com/couchcryptid/sfpd-cad-cot/internal/config"
	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
	"github.com/couchcryptid/sfpd-cad-cot/internal/observability"
	"github.com/couchcryptid/sfpd-cad-cot/internal/pipeline"
	"github.com/joho/godotenv"
)

// sink is a pipeline.Sink that owns a connection.
type sink interface {
	pipeline.Sink
	Close() error
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(logOutput(cfg.Sink), cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := newSink(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open sink", "sink", cfg.Sink, "error", err)
		os.Exit(1)
	}

	fetcher := feed.NewClient(cfg.CADURL, cfg.FeedTimeout, logger)
	transformer := pipeline.NewTransformer(domain.CoTOptions{Stale: cfg.CoTStale, HostID: cfg.CoTHostID})

	p := pipeline.New(fetcher, transformer, out, logger, metrics, cfg.PollInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	logger.Info("gateway configured",
		"cad_url", cfg.CADURL,
		"sink", cfg.Sink,
		"poll_interval", cfg.PollInterval,
		"cot_stale", cfg.CoTStale,
		"cot_host_id", cfg.CoTHostID,
	)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start poll loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := out.Close(); err != nil {
		logger.Error("sink close error", "sink", cfg.Sink, "error", err)
	}

	logger.Info("shutdown complete")
}

// logOutput keeps stdout for CoT events when they are the output.
func logOutput(sink string) io.Writer {
	if sink == config.SinkStdout {
		return os.Stderr
	}
	return os.Stdout
}

func newSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sink, error) {
	switch cfg.Sink {
	case config.SinkKafka:
		return kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger), nil
	case config.SinkRedis:
		return redisadapter.NewQueue(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey, cfg.RedisMaxLen, logger)
	case config.SinkStdout:
		return stdout.NewWriter(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}
