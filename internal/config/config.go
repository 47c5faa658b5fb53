package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`

	// Primary generative-AI provider (Gemini).
	GeminiAPIKey  string `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL string `mapstructure:"GEMINI_BASE_URL"`
	// Comma separated, probed in order.
	GeminiModels string `mapstructure:"GEMINI_MODELS"`

	// Secondary provider (Groq, OpenAI-compatible). Used only as fallback.
	GroqAPIKey  string `mapstructure:"GROQ_API_KEY"`
	GroqBaseURL string `mapstructure:"GROQ_BASE_URL"`
	GroqModel   string `mapstructure:"GROQ_MODEL"`

	AITemperature     float64       `mapstructure:"AI_TEMPERATURE"`
	AIMaxOutputTokens int           `mapstructure:"AI_MAX_OUTPUT_TOKENS"`
	AIMinInterval     time.Duration `mapstructure:"AI_MIN_INTERVAL"`
	AIHistoryLimit    int           `mapstructure:"AI_HISTORY_LIMIT"`
	AIQuotaResetTZ    string        `mapstructure:"AI_QUOTA_RESET_TZ"`
	AIRequestTimeout  time.Duration `mapstructure:"AI_REQUEST_TIMEOUT"`
	AISessionIdleTTL  time.Duration `mapstructure:"AI_SESSION_IDLE_TTL"`
	AIMaxSessions     int           `mapstructure:"AI_MAX_SESSIONS"`

	MessageTTL      time.Duration `mapstructure:"MESSAGE_TTL"`
	CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`

	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	CourseCacheTTL time.Duration `mapstructure:"COURSE_CACHE_TTL"`

	RabbitMQURL        string `mapstructure:"RABBITMQ_URL"`
	PaymentEventsQueue string `mapstructure:"PAYMENT_EVENTS_QUEUE"`

	// Base URL of the Cloud Functions fronting Mercado Pago.
	PaymentFunctionsBaseURL string `mapstructure:"PAYMENT_FUNCTIONS_BASE_URL"`
	PaymentWebhookSecret    string `mapstructure:"PAYMENT_WEBHOOK_SECRET"`
}

var envKeys = []string{
	"PORT",
	"GIN_MODE",
	"FIREBASE_PROJECT_ID",
	"GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"CLIENT_URL",
	"GEMINI_API_KEY",
	"GEMINI_BASE_URL",
	"GEMINI_MODELS",
	"GROQ_API_KEY",
	"GROQ_BASE_URL",
	"GROQ_MODEL",
	"AI_TEMPERATURE",
	"AI_MAX_OUTPUT_TOKENS",
	"AI_MIN_INTERVAL",
	"AI_HISTORY_LIMIT",
	"AI_QUOTA_RESET_TZ",
	"AI_REQUEST_TIMEOUT",
	"AI_SESSION_IDLE_TTL",
	"AI_MAX_SESSIONS",
	"MESSAGE_TTL",
	"CLEANUP_INTERVAL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"COURSE_CACHE_TTL",
	"RABBITMQ_URL",
	"PAYMENT_EVENTS_QUEUE",
	"PAYMENT_FUNCTIONS_BASE_URL",
	"PAYMENT_WEBHOOK_SECRET",
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("GEMINI_MODELS", "gemini-2.5-flash,gemini-2.0-flash,gemini-1.5-flash")
	v.SetDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("GROQ_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("AI_TEMPERATURE", 0.7)
	v.SetDefault("AI_MAX_OUTPUT_TOKENS", 1024)
	v.SetDefault("AI_MIN_INTERVAL", "5s")
	v.SetDefault("AI_HISTORY_LIMIT", 10)
	v.SetDefault("AI_QUOTA_RESET_TZ", "America/Los_Angeles")
	v.SetDefault("AI_REQUEST_TIMEOUT", "60s")
	v.SetDefault("AI_SESSION_IDLE_TTL", "2h")
	v.SetDefault("AI_MAX_SESSIONS", 10000)
	v.SetDefault("MESSAGE_TTL", "1h")
	v.SetDefault("CLEANUP_INTERVAL", "10m")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("COURSE_CACHE_TTL", "10m")
	v.SetDefault("PAYMENT_EVENTS_QUEUE", "payment_events")
}

// Validate checks required fields and value ranges.
// The AI provider keys are deliberately optional: a missing Gemini key is
// reported to the user by the orchestrator, not treated as a startup error.
func (c *Config) Validate() error {
	if c.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}
	if c.ClientURL == "" {
		return errors.New("CLIENT_URL is required")
	}
	if c.PaymentFunctionsBaseURL == "" {
		return errors.New("PAYMENT_FUNCTIONS_BASE_URL is required")
	}
	if c.PaymentWebhookSecret == "" {
		return errors.New("PAYMENT_WEBHOOK_SECRET is required")
	}
	if len(c.GeminiModelList()) == 0 {
		return errors.New("GEMINI_MODELS must list at least one model")
	}
	if c.AIMinInterval < 0 {
		return errors.New("AI_MIN_INTERVAL cannot be negative")
	}
	if c.AIMaxSessions < 0 {
		return errors.New("AI_MAX_SESSIONS cannot be negative")
	}
	if c.MessageTTL <= 0 {
		return errors.New("MESSAGE_TTL must be positive")
	}
	if c.CleanupInterval <= 0 {
		return errors.New("CLEANUP_INTERVAL must be positive")
	}
	if _, err := time.LoadLocation(c.AIQuotaResetTZ); err != nil {
		return errors.New("AI_QUOTA_RESET_TZ is not a valid time zone: " + err.Error())
	}
	return nil
}

// GeminiModelList returns the candidate model identifiers in probe order.
func (c *Config) GeminiModelList() []string {
	var models []string
	for _, m := range strings.Split(c.GeminiModels, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}
