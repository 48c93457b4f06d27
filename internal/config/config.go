package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Feed      FeedConfig
	Assistant AssistantConfig
	SMS       SMSConfig
	Worker    WorkerConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type FeedConfig struct {
	URL          string
	AppName      string
	Limit        int
	PollInterval time.Duration
	Timeout      time.Duration
	RetryDelay   time.Duration
	MaxRetries   int
}

type AssistantConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// SMSConfig configures the outbound httpSMS notification channel used by the
// emergency-report flow. Sender and recipient are fixed per deployment.
type SMSConfig struct {
	URL    string
	APIKey string
	From   string
	To     string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Feed: FeedConfig{
			URL:          getEnv("FEED_URL", "https://api.reliefweb.int/v1/disasters"),
			AppName:      getEnv("FEED_APP_NAME", "discentra"),
			Limit:        getEnvInt("FEED_LIMIT", 20),
			PollInterval: getEnvDuration("FEED_POLL_INTERVAL", 5*time.Minute),
			Timeout:      getEnvDuration("FEED_TIMEOUT", 15*time.Second),
			RetryDelay:   getEnvDuration("FEED_RETRY_DELAY", 5*time.Second),
			MaxRetries:   getEnvInt("FEED_MAX_RETRIES", 3),
		},
		Assistant: AssistantConfig{
			BaseURL: getEnv("ASSISTANT_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:  getEnv("ASSISTANT_API_KEY", ""),
			Model:   getEnv("ASSISTANT_MODEL", "nvidia/llama-3.1-nemotron-ultra-253b-v1:free"),
			Timeout: getEnvDuration("ASSISTANT_TIMEOUT", 30*time.Second),
		},
		SMS: SMSConfig{
			URL:    getEnv("SMS_URL", "https://api.httpsms.com"),
			APIKey: getEnv("SMS_API_KEY", ""),
			From:   getEnv("SMS_FROM", ""),
			To:     getEnv("SMS_TO", ""),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Feed.PollInterval < time.Minute {
		return fmt.Errorf("feed poll interval must be at least 1 minute")
	}
	if c.Feed.RetryDelay <= 0 {
		return fmt.Errorf("feed retry delay must be positive")
	}
	if c.Feed.MaxRetries < 0 {
		return fmt.Errorf("feed max retries must not be negative")
	}
	if c.Feed.Limit < 1 || c.Feed.Limit > 500 {
		return fmt.Errorf("feed limit out of range: %d", c.Feed.Limit)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
