package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openquest/onboarding-api/internal/app"
	"github.com/openquest/onboarding-api/internal/config"
	"github.com/openquest/onboarding-api/internal/observability"
	"github.com/openquest/onboarding-api/internal/platform/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, flushLogs, err := observability.InitBetterStackLogger(cfg, logging.NewJSON(cfg.LogLevel))
	if err != nil {
		panic(err)
	}
	logging.SetDefault(logger)

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	srv, cleanup, err := app.NewHTTPServer(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("http server starting",
			"addr", cfg.HTTPAddr,
			"env", cfg.AppEnv,
			"version", cfg.ServiceVersion,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	cleanup()

	if err := observability.StopPprofServer(pprofSrv, logger, shutdownTimeout); err != nil {
		logger.Warn("stop pprof server failed", "error", err)
	}
	if err := stopProfiler(); err != nil {
		logger.Warn("stop pyroscope failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("shutdown tracing failed", "error", err)
	}
	if err := flushLogs(shutdownCtx); err != nil {
		logger.Warn("flush logs failed", "error", err)
	}

	logger.Info("http server stopped")
	_ = logger.Sync()
}
