package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		FromName   string
	}
	Telegram struct {
		BotToken      string
		RatePerSecond int
	}
	API struct {
		Port     string
		BasePath string
	}
	Sweeps struct {
		ScheduleSpec   string // cron spec for the scheduling sweep
		OverdueSpec    string // cron spec for the overdue sweep
		EscalationSpec string // cron spec for the escalation sweep
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Kafka settings (optional: asset events are a secondary trigger source)
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")

	// Telegram settings
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if r, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_PER_SECOND")); err == nil {
		cfg.Telegram.RatePerSecond = r
	}

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Sweep cadences
	cfg.Sweeps.ScheduleSpec = os.Getenv("SWEEP_SCHEDULE_SPEC")
	cfg.Sweeps.OverdueSpec = os.Getenv("SWEEP_OVERDUE_SPEC")
	cfg.Sweeps.EscalationSpec = os.Getenv("SWEEP_ESCALATION_SPEC")

	// Logging
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "maintenance-service"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "asset_events"
	}
	if cfg.Telegram.RatePerSecond == 0 {
		cfg.Telegram.RatePerSecond = 20
	}
	if cfg.Sweeps.ScheduleSpec == "" {
		cfg.Sweeps.ScheduleSpec = "0 3 * * 1" // weekly, Monday 03:00
	}
	if cfg.Sweeps.OverdueSpec == "" {
		cfg.Sweeps.OverdueSpec = "30 0 * * *" // daily, 00:30
	}
	if cfg.Sweeps.EscalationSpec == "" {
		cfg.Sweeps.EscalationSpec = "0 */6 * * *" // every 6 hours
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}
