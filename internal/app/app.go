// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, хранилище документов,
// репозитории, сервисы, обработчики и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-bot/internal/bot"
	"serotonyl.ru/points-bot/internal/config"
	"serotonyl.ru/points-bot/internal/db/kvstore"
	"serotonyl.ru/points-bot/internal/db/postgres"
	"serotonyl.ru/points-bot/internal/features/points"
	"serotonyl.ru/points-bot/internal/features/scanner"
	"serotonyl.ru/points-bot/internal/features/vouch"
	"serotonyl.ru/points-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Session   *discordgo.Session
	Locker    *points.UserLocker
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Сессия Discord ===
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания сессии Discord: %w", err)
	}

	// === 3. Хранилище документов и репозитории ===
	store := kvstore.NewPostgres(pool)
	pointsRepo := points.NewRepository(store)
	vouchRepo := vouch.NewRepository(store)

	// === 4. Сервисы ===
	locker := points.NewUserLocker()
	pointsService := points.NewService(pointsRepo, locker, cfg.RedeemCost)
	registry := vouch.NewService(vouchRepo)

	// === 5. Обработчики ===
	pointsHandler := points.NewHandler(pointsService, cfg)
	vouchHandler := vouch.NewHandler(registry)

	// Сканер привязан к каналу; без CHANNEL_ID команды обхода отключены
	var newScanner func() *scanner.Scanner
	if cfg.ChannelID != "" {
		newScanner = func() *scanner.Scanner {
			history := bot.NewDiscordHistory(session, cfg.ChannelID)
			return scanner.New(history, pointsService, registry,
				cfg.ScanBatchSize, cfg.ScanPagePause, cfg.ScanProgressEvery)
		}
	}
	scanHandler := scanner.NewHandler(newScanner)

	// === 6. Собираем бота ===
	b := bot.New(session, cfg, pointsService, pointsHandler, registry, vouchHandler, scanHandler)

	// === 7. Планировщик задач ===
	sched := jobs.NewScheduler(session, cfg.FeaturePresenceEnabled)

	log.Info("Все компоненты приложения собраны")

	return &App{
		Bot:       b,
		Scheduler: sched,
		DB:        pool,
		Session:   session,
		Locker:    locker,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001KVDocuments},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001KVDocuments = `
CREATE TABLE IF NOT EXISTS kv_documents (
    key VARCHAR(255) PRIMARY KEY,
    value JSONB NOT NULL,
    updated_at TIMESTAMP DEFAULT NOW()
);
`
