package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pfms/internal/amqp"
	"pfms/internal/auth"
	"pfms/internal/cli"
	apphttp "pfms/internal/http"
	applog "pfms/internal/log"
	"pfms/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.SeedAdminUser(ctx, logger, repo, cfg)

	authSvc := auth.NewService(repo, cfg.SessionTTL)

	// The event pipeline is optional; without a broker, mutations stay
	// local and the catch-up sweep in the worker covers the export.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without ledger events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	txService := services.NewTransactionService(repo, publisher)
	srv := apphttp.NewServer(":"+cfg.Port, repo, authSvc, txService, cfg.RateLimitPerMinute)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting pfms server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		// Hourly sweep of expired sessions.
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n, err := authSvc.SweepExpired(ctx); err != nil {
					logger.Error("Session sweep failed", "error", err)
				} else if n > 0 {
					logger.Info("Swept expired sessions", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
