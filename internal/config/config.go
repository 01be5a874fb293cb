package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application settings read from the environment
type Config struct {
	// Telegram
	BotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	OwnerChatID int64  `env:"OWNER_CHAT_ID"`

	// Database
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBDSN    string `env:"DB_DSN" envDefault:"data/reptrainer.db"`

	// Logging: "dev" or "prod"
	LogMode string `env:"LOG_MODE" envDefault:"dev"`

	// Reminders
	EnableScheduler   bool `env:"ENABLE_SCHEDULER" envDefault:"true"`
	ReminderStartHour int  `env:"REMINDER_START_HOUR" envDefault:"8"`
	ReminderEndHour   int  `env:"REMINDER_END_HOUR" envDefault:"22"`

	// Number of lines loaded per batch when a session streams lines
	TrainingBatchSize int `env:"TRAINING_BATCH_SIZE" envDefault:"20"`
}

// Load reads an optional .env file and parses the environment into a Config
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.ReminderStartHour < 0 || c.ReminderStartHour > 23 ||
		c.ReminderEndHour < 0 || c.ReminderEndHour > 23 {
		return fmt.Errorf("reminder hours must be within 0-23, got %d-%d", c.ReminderStartHour, c.ReminderEndHour)
	}
	if c.TrainingBatchSize < 1 {
		return fmt.Errorf("TRAINING_BATCH_SIZE must be positive, got %d", c.TrainingBatchSize)
	}
	return nil
}
