// Package main запускает HTTP-сервер сервиса бронирования базы отдыха.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mlebedeva/resort-system/internal/availability"
	"github.com/mlebedeva/resort-system/internal/booking"
	"github.com/mlebedeva/resort-system/internal/config"
	"github.com/mlebedeva/resort-system/internal/handler"
	"github.com/mlebedeva/resort-system/internal/middleware"
	"github.com/mlebedeva/resort-system/internal/notify"
	"github.com/mlebedeva/resort-system/internal/order"
	"github.com/mlebedeva/resort-system/internal/repository"
	"github.com/mlebedeva/resort-system/internal/router"
	"github.com/mlebedeva/resort-system/internal/telegram"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	notifier := notify.NewClient(cfg.NotifyAddress, logger)

	// Токен бота живёт в настройках, а не в окружении: настройки правит
	// администратор, и сервис должен подниматься и без настроенного бота.
	var gateway router.Gateway = telegram.NewNop(logger)
	settings, err := repo.GetSettings(context.Background())
	if err != nil {
		sugar.Warnw("settings unavailable, telegram gateway disabled", "error", err.Error())
	} else if settings.BotToken != "" {
		tg, err := telegram.New(settings.BotToken, cfg.TelegramAPIEndpoint)
		if err != nil {
			sugar.Fatalw("telegram client initialization error", "error", err.Error())
		}
		gateway = tg
	} else {
		sugar.Warnw("bot token is empty, telegram gateway disabled")
	}

	checker := availability.NewChecker(repo)
	bookings := booking.NewService(repo, checker, notifier, logger)
	orders := order.NewService(repo, notifier)
	events := router.New(bookings, orders, repo, repo, gateway, logger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(bookings, orders, events, repo, logger, authMiddleware, cfg.WebhookSecret)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting resort server", "addr", cfg.RunAddress)
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
