package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"order-intake-bot/internal/catalog"
	"order-intake-bot/internal/client"
	"order-intake-bot/internal/config"
	"order-intake-bot/internal/notify"
	"order-intake-bot/internal/repository"
	"order-intake-bot/internal/server"
	"order-intake-bot/internal/service"
	"order-intake-bot/internal/session"
	"order-intake-bot/internal/storage"
	"order-intake-bot/internal/telegram"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(level).
		With().Timestamp().Logger()

	db, err := client.InitSqliteClient(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("open database")
	}

	catalogFile := catalog.NewFile(cfg.CatalogPath)
	entries, err := catalogFile.Load()
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("load product catalog")
	}

	inventoryRepo := repository.NewInventoryRepository(db, catalogFile, logger)
	if err := inventoryRepo.SeedFromCatalog(context.Background(), entries); err != nil {
		logger.Fatal().Err(err).Msg("seed inventory from catalog")
	}
	orderRepo := repository.NewOrderRepository(db)

	sessions := session.NewStore()
	photos := storage.NewReviewStore(cfg.ReviewDir)
	queue := notify.NewQueue(64, logger)

	intakeService := service.NewIntakeService(
		inventoryRepo, orderRepo, sessions, photos, queue, cfg.AdminID, logger)
	adminService := service.NewAdminService(orderRepo)
	reminderService := service.NewReminderService(orderRepo, queue, logger)

	bot, err := telegram.NewBot(
		cfg.Telegram.Token, cfg.Telegram.PollTimeout, cfg.AdminID,
		intakeService, adminService, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to telegram")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go queue.Run(ctx, bot)
	go bot.Run(ctx)

	scheduler := cron.New()
	for _, spec := range cfg.Reminder.Schedules {
		if _, err := scheduler.AddFunc(spec, func() { reminderService.Sweep(ctx) }); err != nil {
			logger.Fatal().Err(err).Str("spec", spec).Msg("register reminder schedule")
		}
	}
	scheduler.Start()
	logger.Info().Strs("schedules", cfg.Reminder.Schedules).Msg("review reminders scheduled")

	srv := server.NewServer()
	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health server error")
		}
	}()
	logger.Info().Str("addr", serverAddr).Msg("health server listening")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info().Msg("signal received, starting graceful shutdown")

	cancel()
	<-scheduler.Stop().Done()

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("health server shutdown error")
	}
}
