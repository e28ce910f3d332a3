// Package config loads runtime settings from a .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/teemow/calprompt/internal/holidays"
	"github.com/teemow/calprompt/internal/interpret"
)

// Defaults applied by Load.
const (
	DefaultHTTPAddr         = ":8080"
	DefaultReasoningTimeout = interpret.DefaultRoundTripTimeout
)

// Config holds all settings the serve command needs.
type Config struct {
	HTTPAddr    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AnthropicAPIKey    string
	AnthropicModel     string
	ReasoningTimeout   time.Duration
	ReasoningMaxTokens int

	DefaultSchoolZone  holidays.Zone
	SchoolHolidaysFile string

	CORSAllowedOrigins []string
}

// Load reads .env from the working directory, when present, and then the
// environment. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:           getEnvOrDefault("HTTP_ADDR", DefaultHTTPAddr),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:     os.Getenv("ANTHROPIC_MODEL"),
		SchoolHolidaysFile: os.Getenv("SCHOOL_HOLIDAYS_FILE"),
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ReasoningMaxTokens, err = getEnvInt("REASONING_MAX_TOKENS", 0); err != nil {
		return nil, err
	}
	if cfg.ReasoningTimeout, err = getEnvDuration("REASONING_TIMEOUT", DefaultReasoningTimeout); err != nil {
		return nil, err
	}
	if cfg.DefaultSchoolZone, err = holidays.ParseZone(getEnvOrDefault("DEFAULT_SCHOOL_ZONE", string(holidays.DefaultZone))); err != nil {
		return nil, fmt.Errorf("DEFAULT_SCHOOL_ZONE: %w", err)
	}
	return cfg, nil
}

// SchoolTable returns the configured school-holiday table, or the built-in
// one when no file is set.
func (c *Config) SchoolTable() (*holidays.SchoolTable, error) {
	if c.SchoolHolidaysFile == "" {
		return holidays.DefaultSchoolTable(), nil
	}
	return holidays.LoadSchoolTable(c.SchoolHolidaysFile)
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 60s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
