package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Queue    QueueConfig
	Bot      BotConfig
	App      AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// QueueConfig holds the click-event broker configuration.
// URL may be empty, in which case click events are tracked in the
// database only and nothing is published.
type QueueConfig struct {
	URL        string
	ClickQueue string
}

// BotConfig holds the Telegram bot configuration.
type BotConfig struct {
	Token  string
	APIURL string // base URL of the gateway the bot talks to
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	BaseURL           string // Base URL for generating short links
	Environment       string // "development", "staging", "production"
	OTLPEndpoint      string // empty means traces are not exported
	ShortCodeLen      int
	ShortCodeRetries  int
	KeepAliveInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "tinylink"),
			Password: getEnv("DB_PASSWORD", "tinylink_secret"),
			DBName:   getEnv("DB_NAME", "tinylink"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Queue: QueueConfig{
			URL:        getEnv("AMQP_URL", ""),
			ClickQueue: getEnv("AMQP_CLICK_QUEUE", "url.clicks"),
		},
		Bot: BotConfig{
			Token:  getEnv("BOT_TOKEN", ""),
			APIURL: getEnv("BOT_API_URL", getEnv("BASE_URL", "http://localhost:8080")),
		},
		App: AppConfig{
			BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
			Environment:       getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint:      getEnv("OTLP_ENDPOINT", ""),
			ShortCodeLen:      getEnvInt("SHORT_CODE_LENGTH", 8),
			ShortCodeRetries:  getEnvInt("SHORT_CODE_MAX_RETRIES", 3),
			KeepAliveInterval: getEnvDuration("KEEP_ALIVE_INTERVAL", 14*time.Minute),
		},
	}, nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
