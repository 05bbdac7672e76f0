package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const sampleSessionSecret = "change_me_to_a_long_random_terminal_secret"

type Config struct {
	// Database
	DBPath          string
	DBBusyTimeoutMS int
	DBMaxOpenConns  int

	// Application
	AppEnv   string
	LogLevel string
	DeviceID string

	// Sessions
	SessionSecret       string
	SessionStaleSeconds int
	HeartbeatSeconds    int
	LoginMaxAttempts    int
	LoginWindowSeconds  int

	// Betting
	MinBet               int64
	DrawPayoutMultiplier int64

	// Bootstrap
	BootstrapAdminUsername string
	BootstrapAdminPassword string

	// Alerts
	TelegramBotToken    string
	TelegramAlertChatID int64
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBPath:          getEnv("DB_PATH", "cockpit.sqlite3"),
		DBBusyTimeoutMS: getEnvInt("DB_BUSY_TIMEOUT_MS", 5000),
		DBMaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 4),

		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DeviceID: getEnv("DEVICE_ID", ""),

		SessionSecret:       getEnv("SESSION_SECRET", ""),
		SessionStaleSeconds: getEnvInt("SESSION_STALE_SECONDS", 30),
		HeartbeatSeconds:    getEnvInt("HEARTBEAT_SECONDS", 10),
		LoginMaxAttempts:    getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindowSeconds:  getEnvInt("LOGIN_WINDOW_SECONDS", 60),

		MinBet:               getEnvInt64("MIN_BET", 10),
		DrawPayoutMultiplier: getEnvInt64("DRAW_PAYOUT_MULTIPLIER", 5),

		BootstrapAdminUsername: getEnv("BOOTSTRAP_ADMIN_USERNAME", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	chatIDStr := getEnv("TELEGRAM_ALERT_CHAT_ID", "")
	if chatIDStr != "" {
		id, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALERT_CHAT_ID: %w", err)
		}
		cfg.TelegramAlertChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.DBBusyTimeoutMS <= 0 {
		return fmt.Errorf("DB_BUSY_TIMEOUT_MS must be positive")
	}
	if c.DBMaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}
	if c.SessionStaleSeconds <= 0 {
		return fmt.Errorf("SESSION_STALE_SECONDS must be positive")
	}
	if c.HeartbeatSeconds <= 0 || c.HeartbeatSeconds >= c.SessionStaleSeconds {
		return fmt.Errorf("HEARTBEAT_SECONDS must be positive and shorter than SESSION_STALE_SECONDS")
	}
	if c.LoginMaxAttempts <= 0 || c.LoginWindowSeconds <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW_SECONDS must be positive")
	}
	if c.MinBet <= 0 {
		return fmt.Errorf("MIN_BET must be positive")
	}
	if c.DrawPayoutMultiplier <= 0 {
		return fmt.Errorf("DRAW_PAYOUT_MULTIPLIER must be positive")
	}
	if (c.TelegramBotToken == "") != (c.TelegramAlertChatID == 0) {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_ALERT_CHAT_ID must be set together")
	}
	if (c.BootstrapAdminUsername == "") != (c.BootstrapAdminPassword == "") {
		return fmt.Errorf("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.SessionSecret == sampleSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be changed from default in production")
	}
	if !filepath.IsAbs(c.DBPath) {
		return fmt.Errorf("DB_PATH must be an absolute path in production")
	}

	return nil
}

func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.DBBusyTimeoutMS) * time.Millisecond
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.SessionStaleSeconds) * time.Second
}

func (c *Config) LoginWindow() time.Duration {
	return time.Duration(c.LoginWindowSeconds) * time.Second
}

func (c *Config) AlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAlertChatID != 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
