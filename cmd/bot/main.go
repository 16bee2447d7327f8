package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/app"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/config"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/controller"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/controller/handlers"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/metrics"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/notify"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/repository"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting ledger service",
		zap.String("environment", cfg.Environment),
		zap.Bool("bot_enabled", cfg.BotEnabled()),
		zap.Int("admins", len(cfg.AdminIDs)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}

	logger.Info("Service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		migrator.Close()
		return err
	}
	migrator.Close()

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Бот нужен и для уведомлений, и для команд администраторов
	var (
		botInstance *bot.Bot
		notifier    notify.Notifier = notify.Nop{}
	)
	if cfg.BotEnabled() {
		botInstance, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return err
		}
		notifier = notify.NewTelegram(botInstance, logger.Named("notify"))
	} else {
		logger.Warn("TELEGRAM_TOKEN is not set, notifications and bot commands are disabled")
	}

	// Сервисы
	store := repository.NewStore(pool)
	opts := service.Options{
		DefaultPercent: cfg.DefaultCommissionPercent,
		DebtTolerance:  cfg.DebtTolerance,
	}

	guard := service.NewDebtGuard(store, opts, logger)
	commissionService := service.NewCommissionService(store, guard, m, opts, logger)
	settlementService := service.NewSettlementService(store, commissionService, m, opts, logger)
	payoutService := service.NewPayoutService(store, notifier, m, opts, logger)
	ledgerService := service.NewLedgerService(store, opts, logger)
	membershipService := service.NewMembershipService(store, guard, logger)

	// Фоновые задачи
	scheduler, err := app.NewScheduler(settlementService, cfg.SettleCron, cfg.SettleGrace, logger.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	g, ctx := errgroup.WithContext(ctx)

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("Metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if botInstance != nil {
		cmdHandlers := handlers.NewHandlers(
			settlementService,
			commissionService,
			payoutService,
			ledgerService,
			membershipService,
			cfg.AdminIDs,
			logger.Named("bot"),
		)
		botController := controller.NewBotController(botInstance, cmdHandlers, logger.Named("bot"))

		if err := botController.RegisterHandlers(ctx); err != nil {
			// меню команд не критично для работы
			logger.Warn("Failed to register bot commands menu", zap.Error(err))
		}

		g.Go(func() error {
			return botController.Start(ctx)
		})
	}

	return g.Wait()
}

func metricsMux(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
