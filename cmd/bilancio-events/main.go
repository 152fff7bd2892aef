package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/worker"
)

const summaryInterval = time.Minute

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(log.New(log.DefaultConfig()))
	logger := cli.SetupLogger(cfg)

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required for bilancio-events")
		os.Exit(1)
	}

	if err := run(logger, cfg); err != nil {
		logger.Error("Event consumer failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Event consumer shutdown complete")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewEventWorker(logger)
	logger.Info("Starting bilancio-events", "queue", cfg.AMQPQueue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeEntryEvents(gctx, w.HandleEntryEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return w.Run(gctx, summaryInterval)
	})

	return g.Wait()
}
