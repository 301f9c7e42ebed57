package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/threadserve/config"
	"github.com/angeloszaimis/threadserve/internal/httpserver"
	"github.com/angeloszaimis/threadserve/internal/metrics"
	"github.com/angeloszaimis/threadserve/internal/protocol"
	"github.com/angeloszaimis/threadserve/internal/strategy"
	"github.com/angeloszaimis/threadserve/internal/telemetry"
	"github.com/angeloszaimis/threadserve/internal/workerpool"
	"github.com/angeloszaimis/threadserve/pkg/logger"
)

const serviceName = "threadserve"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if cfg.Metrics.Enabled && cfg.Metrics.OTLPEndpoint != "" {
		shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Settings{
			ServiceName: serviceName,
			Environment: cfg.Server.Environment,
			Endpoint:    cfg.Metrics.OTLPEndpoint,
			Interval:    cfg.Metrics.ExportDuration(),
		})
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				log.Warn("Failed to flush telemetry", slog.Any("err", err))
			}
		}()
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collectorCtx, stopCollector := context.WithCancel(context.Background())
		defer stopCollector()

		collector = metrics.NewCollector(cfg.Metrics.BufferSize, logger.Component(log, "metrics"))
		collector.Start(collectorCtx)
	}

	strat := createStrategy(log, cfg.Pool.Strategy)

	order, err := workerpool.ParseQueueOrder(cfg.Pool.QueueOrder)
	if err != nil {
		return err
	}

	pool := workerpool.New(
		workerpool.WithCapacity(cfg.Pool.Capacity),
		workerpool.WithStrategy(strat),
		workerpool.WithQueueOrder(order),
		workerpool.WithLogger(log),
		workerpool.WithCollector(collector),
	)

	table, err := setupRouter(collector, cfg.Metrics.Path, strat.Name())
	if err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	srv, err := httpserver.New(cfg.Server.Address, table, pool,
		httpserver.WithLogger(log),
		httpserver.WithCollector(collector),
		httpserver.WithShutdownTimeout(cfg.Server.ShutdownDuration()),
		httpserver.WithRequestLimits(protocol.Limits{
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		}),
	)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	log.Info("Starting server",
		slog.String("addr", cfg.Server.Address),
		slog.Int("workers", pool.Capacity()),
		slog.String("strategy", strat.Name()),
		slog.String("queue_order", order.String()),
		slog.Int("routes", table.Len()))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
		return nil
	case err := <-srvErrCh:
		return err
	}
}

func createStrategy(log *slog.Logger, name string) strategy.Strategy {
	strat, err := strategy.New(name)
	if err != nil {
		log.Warn("Unknown strategy, defaulting to least-queue", slog.String("requested", name))
		return strategy.NewLeastQueueStrategy()
	}
	return strat
}
