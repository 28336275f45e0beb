package main

import (
	"context"
	"fmt"
	"io"

	"payboard/internal/backend"
	"payboard/internal/cli"
	"payboard/internal/config"
	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/services"
	"payboard/internal/settings"
)

const configPathEnv = config.PathEnv

// runtime is the configuration, logger and adapters every command starts
// from.
type runtime struct {
	cfg      *config.Config
	logger   *log.Logger
	backend  *backend.Backend
	settings *settings.Service
	exports  *services.ExportService
}

// openRuntime loads config, builds the backend and loads the live rates.
// Logs go to logOut so report output on stdout stays clean.
func openRuntime(ctx context.Context, logOut io.Writer) (*runtime, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, logOut)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	b, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	svc := settings.NewService(b.Settings, logger)
	if err := svc.Load(ctx); err != nil {
		logger.Warn("Using default payout rates", log.FieldError, err.Error())
	}
	exports := services.NewExportService(b.Publisher, b.Reports, b.Audit, logger)
	structured := log.NewStructuredLogger(logger)
	svc.OnCommit(func(ctx context.Context, r core.PayoutRates) {
		structured.LogRatesCommitted(ctx, r.News, r.Blog)
	})
	svc.OnCommit(exports.RatesCommitted)

	return &runtime{cfg: cfg, logger: logger, backend: b, settings: svc, exports: exports}, nil
}

func (rt *runtime) close() {
	if rt.backend.Cleanup == nil {
		return
	}
	if err := rt.backend.Cleanup(); err != nil {
		rt.logger.Error("Backend cleanup failed", log.FieldError, err.Error())
	}
}
