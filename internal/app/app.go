// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, пул браузеров,
// очередь буста, обработчики и планировщик.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/api"
	"github.com/koeurnDev/EZA-POST-sub000/internal/automation"
	"github.com/koeurnDev/EZA-POST-sub000/internal/config"
	"github.com/koeurnDev/EZA-POST-sub000/internal/db/postgres"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/accounts"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/boost"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/credits"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/posts"
	"github.com/koeurnDev/EZA-POST-sub000/internal/jobs"
	"github.com/koeurnDev/EZA-POST-sub000/internal/notify"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *api.Server
	Scheduler *jobs.Scheduler
	Queue     *boost.Queue
	Evaluator *boost.Evaluator
	Sessions  *automation.SessionPool
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.Migrate(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Репозитории ===
	creditRepo := credits.NewRepository(pool)
	accountRepo := accounts.NewRepository(pool)
	postRepo := posts.NewRepository(pool)
	boostRepo := boost.NewRepository(pool)

	// === 3. Сервисы ===
	ledger := credits.NewLedger(creditRepo)

	cipher, err := accounts.NewCipher(cfg.BoostEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка инициализации шифрования: %w", err)
	}
	manager := accounts.NewManager(accountRepo, cipher, accounts.Options{
		DefaultDailyLimit: cfg.BoostDefaultDailyLimit,
		ImportDailyLimit:  cfg.BoostImportDailyLimit,
	})

	// === 4. Браузеры ===
	sessions := automation.NewSessionPool(
		automation.RodLauncher{Headless: cfg.BoostHeadless, Bin: cfg.BoostBrowserBin},
		cfg.BoostMaxConcurrentBrowsers,
	)
	if err := sessions.Init(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка инициализации пула браузеров: %w", err)
	}
	executor := automation.NewExecutor(sessions, accountRepo, manager, cfg.Site, automation.Options{
		NavigationTimeout: cfg.BoostNavigationTimeout,
		ElementTimeout:    cfg.BoostElementTimeout,
	})
	manager.SetAutomation(executor)

	// === 5. Буст ===
	notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		sessions.Shutdown()
		pool.Close()
		return nil, err
	}
	queue := boost.NewQueue(boostRepo, manager, executor, ledger, notifier, boost.QueueOptions{})
	evaluator := boost.NewEvaluator(boostRepo, postRepo, ledger, queue, boost.EvaluatorOptions{})

	// === 6. HTTP ===
	server := api.NewServer(cfg,
		credits.NewHandler(ledger),
		accounts.NewHandler(manager),
		boost.NewHandler(boostRepo, queue),
	)

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(evaluator, cfg.BoostSweepSchedule, cfg.Location())

	return &App{
		Server:    server,
		Scheduler: scheduler,
		Queue:     queue,
		Evaluator: evaluator,
		Sessions:  sessions,
		DB:        pool,
	}, nil
}

// Start возвращает в очередь незавершённые бусты и запускает cron.
// HTTP-сервер запускается отдельно (он блокирует).
func (a *App) Start(ctx context.Context) error {
	if _, err := a.Evaluator.Resume(ctx); err != nil {
		log.WithError(err).Error("Не удалось восстановить очередь буста")
	}
	return a.Scheduler.Start(ctx)
}

// Stop останавливает компоненты в обратном порядке:
// HTTP, cron, очередь, браузеры, БД.
func (a *App) Stop(timeout time.Duration) {
	if err := a.Server.Shutdown(timeout); err != nil {
		log.WithError(err).Error("Ошибка остановки HTTP API")
	}
	a.Scheduler.Stop()
	a.Queue.Close()
	a.Sessions.Shutdown()
	a.DB.Close()
}
