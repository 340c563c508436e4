package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"staybook/internal/infra/config"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("staybook stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("staybook stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(logger)

	if err := app.loadPropertyFixtures(ctx, cfg.PropertyFixtures, logger); err != nil {
		logger.Warn("property fixtures load failed", "error", err, "path", cfg.PropertyFixtures)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, app.handlers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	for name, runner := range app.runners {
		name, runner := name, runner
		g.Go(func() error {
			logger.Info("background runner starting", "runner", name)
			if err := runner(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background runner failed", "runner", name, "error", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
