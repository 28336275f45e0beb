package main

import (
	"context"
	"errors"
	"os"
	"time"

	"payboard/internal/backend"
	"payboard/internal/cli"
	"payboard/internal/log"
	"payboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger(nil, os.Stdout), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, os.Stdout)
	logger.Info("Starting payboard-worker", log.FieldOperation, log.OpStartup)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	b, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err)
	}
	cleanup := func() {
		if b.Cleanup != nil {
			if err := b.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err.Error())
			}
		}
	}
	defer cleanup()

	if b.Queue == nil {
		cleanup()
		cli.Fatal(logger, "Worker needs a queue", errors.New("AMQP_URL is not set or the broker is unreachable"))
	}
	if b.Reports == nil {
		cleanup()
		cli.Fatal(logger, "Worker needs a spreadsheet", errors.New("set GOOGLE_SPREADSHEET_ID or SHEETS_BACKEND"))
	}

	parent, stop := context.WithCancel(context.Background())
	defer stop()
	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, nil)

	w := worker.NewExportWorker(b.Articles, b.Settings, b.Reports, b.Audit, logger)
	if err := w.Run(ctx, b.Queue); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
	}
	stop()
	<-done
}
