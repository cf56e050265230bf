// Command numbers serves lists of random integers over HTTP together with
// aggregated health reporting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/numbers/config"
	"github.com/jonwraymond/numbers/health"
	"github.com/jonwraymond/numbers/numbers"
	"github.com/jonwraymond/numbers/observe"
	"github.com/jonwraymond/numbers/resilience"
	"github.com/jonwraymond/numbers/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		config.Exitf("numbers: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe(version))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fmt.Errorf("init middleware: %w", err)
	}
	logger := obs.Logger()

	gen := numbers.NewGenerator(cfg.Generator())
	if err := gen.Config().Validate(); err != nil {
		logger.Warn(ctx, "generator misconfigured, GET / will fail",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}

	agg := health.NewAggregator(health.AggregatorConfig{
		Timeout:  cfg.HealthTimeout,
		Parallel: true,
		OnResult: server.RecordChecks(mw.Metrics()),
	})
	agg.Register(numbers.ConfigProbeName, numbers.NewConfigProbe(gen))
	agg.Register(numbers.RandomFailureProbeName, numbers.NewRandomFailureProbe(cfg.FailureRate))

	guardConfig := cfg.Guard()
	guardConfig.OnReject = server.LogRejections(logger)

	handler := server.New(server.Options{
		Generator:      gen,
		Aggregator:     agg,
		Middleware:     mw,
		MetricsHandler: obs.MetricsHandler(),
		Guard:          resilience.NewGuard(guardConfig),
		Logger:         logger,
	})

	logger.Info(ctx, "starting", observe.Field{Key: "addr", Value: cfg.Addr})

	return server.Run(ctx, cfg.Addr, handler, logger, cfg.ShutdownTimeout)
}
