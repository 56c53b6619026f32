package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"federation-service/internal/app"
	"federation-service/internal/config"
	"federation-service/internal/logger"
	"federation-service/internal/telemetry"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Fatal("failed to read .env", map[string]any{
			"error": err.Error(),
		})
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", map[string]any{
			"error": err.Error(),
		})
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "federation-service",
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracing", map[string]any{
			"error": err.Error(),
		})
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("federation-service started", map[string]any{
		"port": cfg.AppPort,
	})

	<-ctx.Done()

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("federation-service stopped cleanly", nil)
}
