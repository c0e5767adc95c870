package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/dashboard"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/middleware/identity"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/ports"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.LoadConfig()
	logger := cli.SetupLogger(boot.LogLevel, boot.LogFormat, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	store, err := cli.NewBackendProvider(cfg, logger)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err, "backend", cfg.Backend)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := store.Get(startCtx); err != nil {
		cancelStart()
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.Backend)
		os.Exit(1)
	}

	// Events are optional: without a broker the Sheets mirror is simply not fed.
	var publisher ports.RecordPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(startCtx, amqp.Config{
			URL:          cfg.AMQPURL,
			ExchangeName: cfg.AMQPExchange,
			QueueName:    cfg.AMQPQueue,
		})
		if err != nil {
			logger.Warn("AMQP unavailable, transactions will not be mirrored", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange)
		}
	}
	cancelStart()

	dash := dashboard.NewService(store, dashboard.Config{
		FetchTimeout: cfg.FetchTimeout,
		RecentLimit:  cfg.RecentLimit,
		Location:     cfg.Location(),
	})
	transactions := services.NewTransactionService(store, dash, publisher)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Identity:  identity.Config{Header: cfg.UserHeader, DevUser: cfg.DevUser},
		RateLimit: ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		Logger:    logger,
	}, dash, transactions, store)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	if cfg.DevUser != "" {
		logger.Warn("DEV_USER is set; requests without an identity header act as that user", "dev_user", cfg.DevUser)
	}

	serveCtx, stopServing := context.WithCancel(context.Background())
	ctx, done := cli.GracefulShutdown(serveCtx, logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.Backend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		stopServing()
		cli.WaitForShutdown(ctx, done)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	stopServing()
	logger.Info("Server stopped gracefully")
}
