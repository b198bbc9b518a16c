package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Reader   ReaderConfig
	DeepSeek DeepSeekConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port int
}

type ReaderConfig struct {
	BaseURL string
}

type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	EnableFallback bool
}

type GeminiConfig struct {
	APIKey         string
	Model          string
	EnableFallback bool
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8080),
		},
		Reader: ReaderConfig{
			BaseURL: getEnv("READER_BASE_URL", "https://r.jina.ai/"),
		},
		DeepSeek: DeepSeekConfig{
			APIKey:  getEnv("DEEPSEEK_API_KEY", ""),
			BaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
			Model:   getEnv("DEEPSEEK_MODEL", "deepseek-reasoner"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			EnableFallback: getEnvBool("ROAST_ENABLE_FALLBACK_PROVIDERS", true),
		},
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			EnableFallback: getEnvBool("ROAST_ENABLE_FALLBACK_PROVIDERS", true),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "roast"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "roast"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be a valid port number")
	}
	if c.Reader.BaseURL == "" {
		return fmt.Errorf("READER_BASE_URL is required")
	}
	if c.DeepSeek.APIKey == "" {
		return fmt.Errorf("DEEPSEEK_API_KEY is required")
	}
	if c.DeepSeek.Model == "" {
		return fmt.Errorf("DEEPSEEK_MODEL is required")
	}
	return nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
