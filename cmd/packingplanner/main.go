package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"packing-planner/internal/bot"
	"packing-planner/internal/charts"
	"packing-planner/internal/config"
	"packing-planner/internal/gemini"
	"packing-planner/internal/repository"
	"packing-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	snapshotRepo := repository.NewSnapshotRepository(db)

	planner, err := service.NewPlannerService(ctx, snapshotRepo)
	if err != nil {
		log.Fatalf("load state: %v", err)
	}

	var suggester service.Suggester
	if cfg.GeminiAPIKey != "" {
		suggester = gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	} else {
		log.Println("[info] GEMINI_API_KEY not set, AI suggestions disabled")
	}
	suggestionSvc := service.NewSuggestionService(suggester, planner)
	reminderSvc := service.NewReminderService(planner)

	telegramBot, err := bot.New(cfg.TelegramToken, planner, suggestionSvc, reminderSvc, charts.NewChartGenerator(), &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleDaily(cfg.ReminderTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendTripReminder(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("reminder: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule reminder: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Packing planner bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
