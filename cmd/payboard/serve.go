package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"payboard/internal/auth"
	"payboard/internal/cache"
	"payboard/internal/cli"
	"payboard/internal/dashboard"
	apphttp "payboard/internal/http"
	"payboard/internal/log"
	"payboard/internal/middleware/ratelimit"
	"payboard/internal/report"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 10 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), os.Stdout)
	if err != nil {
		return err
	}
	logger := rt.logger

	loc, err := rt.cfg.Location()
	if err != nil {
		rt.close()
		return err
	}

	gate := auth.NewTokenGate(rt.cfg.AccessToken, rt.cfg.SessionTTL, logger).
		SecureCookies(rt.cfg.SecureCookies)
	if gate.Open() {
		logger.Warn("DASHBOARD_ACCESS_TOKEN not set, dashboard is open to every client")
	}
	sessions := dashboard.NewManager(rt.cfg.SessionTTL, logger)

	caches := cache.NewManager(logger)
	caches.Register("gate_sessions", gate.Sessions())
	caches.Register("dashboard_sessions", sessions.Sessions())
	if rt.backend.Cache != nil {
		caches.Register("articles", rt.backend.Cache.Cache())
	}
	caches.StartCleanup(cleanupInterval)

	srv := apphttp.NewServer(":"+rt.cfg.Port, apphttp.Deps{
		Gate:      gate,
		Sessions:  sessions,
		Settings:  rt.settings,
		Articles:  rt.backend.Articles,
		Exports:   rt.exports,
		Location:  loc,
		RateLimit: ratelimit.DefaultConfig(),
		Report:    report.Options{PDFFontFile: rt.cfg.PDFFontFile},
	}, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(cmd.Context(), logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		caches.Stop()
		rt.close()
	})

	logger.Info("Starting payboard server",
		"port", rt.cfg.Port,
		"settings_backend", rt.cfg.SettingsBackend,
		"news_backend", rt.cfg.NewsBackend,
		"sheets_backend", rt.cfg.Sheets(),
		"amqp", rt.backend.Queue != nil,
		"version", version)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err.Error(), "port", rt.cfg.Port)
			caches.Stop()
			rt.close()
			return err
		}
	case <-ctx.Done():
	}
	<-done
	logger.Info("Server stopped gracefully")
	return nil
}
