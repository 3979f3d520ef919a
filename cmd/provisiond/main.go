package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"provisiond/internal/app"
	"provisiond/internal/config"
	httpinfra "provisiond/internal/infra/http"
	"provisiond/internal/infra/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	bootLog := logging.Setup(logging.Options{Service: "provisiond"})
	cfg, err := config.FromEnv()
	if err != nil {
		bootLog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.Setup(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Service: "provisiond"})
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init services", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.Store.DB != nil {
		if err := a.Store.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "err", err)
			os.Exit(1)
		}
	}

	srv := httpinfra.NewServer(cfg, httpinfra.ServerDeps{
		Store:         a.Store,
		Logger:        logger,
		Admission:     a.Admission,
		Secrets:       a.Secrets,
		Allocator:     a.Allocator,
		Registrations: a.Registrations,
		Deprovisioner: a.Deprovisioner,
		Profiles:      a.Profiles,
		AdminQueries:  a.AdminQueries,
		Authenticator: a.Authenticator,
		Authorizer:    a.Authorizer,
		Metrics:       a.Metrics.Handler(),
	})
	srv.RunInBackground()

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Shutdown()
}
