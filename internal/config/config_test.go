package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/holidays"
)

var envKeys = []string{
	"HTTP_ADDR", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "REASONING_TIMEOUT", "REASONING_MAX_TOKENS",
	"DEFAULT_SCHOOL_ZONE", "SCHOOL_HOLIDAYS_FILE", "CORS_ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, 90*time.Second, cfg.ReasoningTimeout)
	assert.Equal(t, holidays.ZoneB, cfg.DefaultSchoolZone)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.DatabaseURL)

	table, err := cfg.SchoolTable()
	require.NoError(t, err)
	assert.NotEmpty(t, table.Years())
}

func TestFromEnv_Values(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REASONING_TIMEOUT", "2m")
	t.Setenv("REASONING_MAX_TOKENS", "2048")
	t.Setenv("DEFAULT_SCHOOL_ZONE", "c")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://plan.example.org,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 2*time.Minute, cfg.ReasoningTimeout)
	assert.Equal(t, 2048, cfg.ReasoningMaxTokens)
	assert.Equal(t, holidays.ZoneC, cfg.DefaultSchoolZone)
	assert.Equal(t, []string{"http://localhost:3000", "https://plan.example.org"}, cfg.CORSAllowedOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "redis db", key: "REDIS_DB", value: "one"},
		{name: "timeout", key: "REASONING_TIMEOUT", value: "soon"},
		{name: "max tokens", key: "REASONING_MAX_TOKENS", value: "1.5"},
		{name: "zone", key: "DEFAULT_SCHOOL_ZONE", value: "Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even empty.
	require.NoError(t, os.Unsetenv("DATABASE_URL"))
	require.NoError(t, os.Unsetenv("ANTHROPIC_MODEL"))
	t.Cleanup(func() {
		_ = os.Unsetenv("DATABASE_URL")
		_ = os.Unsetenv("ANTHROPIC_MODEL")
	})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DATABASE_URL=postgres://localhost/calprompt\nANTHROPIC_MODEL=test-model\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/calprompt", cfg.DatabaseURL)
	assert.Equal(t, "test-model", cfg.AnthropicModel)
}

func TestLoad_WithoutDotEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	_, err := Load()
	assert.NoError(t, err)
}
