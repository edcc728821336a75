package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token-123")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("REMINDER_TIME", "")
	t.Setenv("OWNER_CHAT_ID", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "token-123", cfg.TelegramToken)
	assert.Equal(t, "packing_planner.db", cfg.DatabaseURL)
	assert.Equal(t, "gemini-3-flash-preview", cfg.GeminiModel)
	assert.Equal(t, "09:00", cfg.ReminderTime)
	assert.Zero(t, cfg.OwnerChatID)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOwnerChatID(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token-123")
	t.Setenv("OWNER_CHAT_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.EqualValues(t, 42, cfg.OwnerChatID)

	t.Setenv("OWNER_CHAT_ID", "not-a-number")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.OwnerChatID)
}
