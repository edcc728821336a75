package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	GeminiAPIKey  string
	GeminiModel   string
	ReminderTime  string
	OwnerChatID   int64
}

// Load reads configuration from the environment (and an optional .env file)
// with sane defaults.
func Load() (Config, error) {
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		ReminderTime:  strings.TrimSpace(os.Getenv("REMINDER_TIME")),
		OwnerChatID:   parseChatID(strings.TrimSpace(os.Getenv("OWNER_CHAT_ID"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "packing_planner.db"
	}

	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-3-flash-preview"
	}

	if cfg.ReminderTime == "" {
		cfg.ReminderTime = "09:00"
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parseChatID(raw string) int64 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
