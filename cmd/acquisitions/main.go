// Package main запускает HTTP-сервер сервиса комплектования.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/acquisitions/internal/config"
	"github.com/mmeshcher/acquisitions/internal/exchange"
	"github.com/mmeshcher/acquisitions/internal/handler"
	"github.com/mmeshcher/acquisitions/internal/locker"
	"github.com/mmeshcher/acquisitions/internal/middleware"
	"github.com/mmeshcher/acquisitions/internal/repository"
	"github.com/mmeshcher/acquisitions/internal/service"
)

const (
	defaultAuthSecret = "acquisitions-secret"
	accountLockTTL    = 10 * time.Second
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var store repository.Store
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresStore(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		defer pg.Close()
		store = pg
	} else {
		sugar.Warn("DATABASE_URI is not set, using in-memory store")
		store = repository.NewMemoryStore()
	}

	opts := []service.Option{service.WithPrecision(cfg.MoneyPrecision)}

	switch cfg.AccountLock {
	case config.LockLocal:
		opts = append(opts, service.WithLocker(locker.NewLocal()))
	case config.LockRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		opts = append(opts, service.WithLocker(locker.NewRedis(rdb, accountLockTTL)))
	}

	if cfg.ExchangeRateAddress != "" {
		opts = append(opts, service.WithRateProvider(exchange.NewClient(cfg.ExchangeRateAddress)))
	}

	svc := service.NewService(store, logger, opts...)
	defer svc.Close()

	secret := cfg.AuthSecret
	if secret == "" {
		sugar.Warn("AUTH_SECRET is not set, using built-in secret")
		secret = defaultAuthSecret
	}
	authMiddleware := middleware.NewAuthMiddleware(secret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting acquisitions server",
			"addr", cfg.RunAddress,
			"account_lock", cfg.AccountLock,
			"precision", cfg.MoneyPrecision,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
