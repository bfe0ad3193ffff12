package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL   string `env:"DATABASE_URL"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Backend Config
	BackendURL         string        `env:"BACKEND_URL" envDefault:"http://localhost:3000"`
	DispatchTimeout    time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"15s"`
	QuickEmergencyType string        `env:"QUICK_EMERGENCY_TYPE" envDefault:"Robo/Violencia"`

	// Activation Config
	CountdownSeconds    int           `env:"COUNTDOWN_SECONDS" envDefault:"5"`
	SuccessDisplayDelay time.Duration `env:"SUCCESS_DISPLAY_DELAY" envDefault:"3s"`
	DashboardPath       string        `env:"DASHBOARD_PATH" envDefault:"/ciudadano/dashboard"`
	MaxAttachments      int           `env:"MAX_ATTACHMENTS" envDefault:"5"`
	MaxAttachmentBytes  int64         `env:"MAX_ATTACHMENT_BYTES" envDefault:"10485760"`

	// Location Config
	LocationTimeout time.Duration `env:"LOCATION_TIMEOUT" envDefault:"3s"`
	LocationTTL     time.Duration `env:"LOCATION_TTL" envDefault:"2m"`

	// History Config
	HistoryCacheTTL time.Duration `env:"HISTORY_CACHE_TTL" envDefault:"5m"`

	// Session Config
	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// Stats Config
	StatsTimeWindowMinutes int `env:"STATS_TIME_WINDOW_MINUTES" envDefault:"60"`

	// Auth Config
	JWTSecret string   `env:"JWT_SECRET"`
	APIKeys   []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RunMigrations:          getEnvAsBool("RUN_MIGRATIONS", true),
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:              os.Getenv("REDIS_PASSWORD"),
		RedisDB:                getEnvAsInt("REDIS_DB", 0),
		BackendURL:             getEnv("BACKEND_URL", "http://localhost:3000"),
		DispatchTimeout:        getEnvAsDuration("DISPATCH_TIMEOUT", 15*time.Second),
		QuickEmergencyType:     getEnv("QUICK_EMERGENCY_TYPE", "Robo/Violencia"),
		CountdownSeconds:       getEnvAsInt("COUNTDOWN_SECONDS", 5),
		SuccessDisplayDelay:    getEnvAsDuration("SUCCESS_DISPLAY_DELAY", 3*time.Second),
		DashboardPath:          getEnv("DASHBOARD_PATH", "/ciudadano/dashboard"),
		MaxAttachments:         getEnvAsInt("MAX_ATTACHMENTS", 5),
		MaxAttachmentBytes:     int64(getEnvAsInt("MAX_ATTACHMENT_BYTES", 10<<20)),
		LocationTimeout:        getEnvAsDuration("LOCATION_TIMEOUT", 3*time.Second),
		LocationTTL:            getEnvAsDuration("LOCATION_TTL", 2*time.Minute),
		HistoryCacheTTL:        getEnvAsDuration("HISTORY_CACHE_TTL", 5*time.Minute),
		SessionIdleTTL:         getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionSweepInterval:   getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		WebhookURL:             os.Getenv("WEBHOOK_URL"),
		WebhookSecret:          os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:         getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:      getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:       getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		StatsTimeWindowMinutes: getEnvAsInt("STATS_TIME_WINDOW_MINUTES", 60),
		JWTSecret:              os.Getenv("JWT_SECRET"),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	// Без секрета нельзя проверить, чей это токен, а сессии привязаны к пользователю
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.CountdownSeconds < 1 {
		return nil, fmt.Errorf("COUNTDOWN_SECONDS must be positive, got %d", cfg.CountdownSeconds)
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool возвращает значение переменной окружения как bool или значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
