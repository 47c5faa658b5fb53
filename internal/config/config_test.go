package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FIREBASE_PROJECT_ID", "flashconcards-test")
	t.Setenv("CLIENT_URL", "http://localhost:5173")
	t.Setenv("PAYMENT_FUNCTIONS_BASE_URL", "https://functions.example.com")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.AIMinInterval)
	assert.Equal(t, time.Hour, cfg.MessageTTL)
	assert.Equal(t, 10, cfg.AIHistoryLimit)
	assert.Equal(t, "America/Los_Angeles", cfg.AIQuotaResetTZ)
	assert.Equal(t, "payment_events", cfg.PaymentEventsQueue)
	assert.Equal(t, 10000, cfg.AIMaxSessions)
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"}, cfg.GeminiModelList())
	assert.Empty(t, cfg.GeminiAPIKey, "a missing Gemini key must not fail startup")
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEMINI_MODELS", " gemini-pro , ,gemini-flash ")
	t.Setenv("AI_MIN_INTERVAL", "2s")
	t.Setenv("AI_TEMPERATURE", "0.2")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"gemini-pro", "gemini-flash"}, cfg.GeminiModelList())
	assert.Equal(t, 2*time.Second, cfg.AIMinInterval)
	assert.InDelta(t, 0.2, cfg.AITemperature, 1e-9)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing project", map[string]string{"FIREBASE_PROJECT_ID": ""}, "FIREBASE_PROJECT_ID"},
		{"missing client url", map[string]string{"CLIENT_URL": ""}, "CLIENT_URL"},
		{"missing webhook secret", map[string]string{"PAYMENT_WEBHOOK_SECRET": ""}, "PAYMENT_WEBHOOK_SECRET"},
		{"empty model list", map[string]string{"GEMINI_MODELS": " , "}, "GEMINI_MODELS"},
		{"negative interval", map[string]string{"AI_MIN_INTERVAL": "-1s"}, "AI_MIN_INTERVAL"},
		{"negative session cap", map[string]string{"AI_MAX_SESSIONS": "-1"}, "AI_MAX_SESSIONS"},
		{"bad time zone", map[string]string{"AI_QUOTA_RESET_TZ": "Mars/Olympus"}, "AI_QUOTA_RESET_TZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
