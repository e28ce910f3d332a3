package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/config"
	"github.com/teemow/calprompt/internal/holidays"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "https://planner.example",
			expected: []string{"https://planner.example"},
		},
		{
			name:     "values with spaces around comma",
			input:    "https://planner.example, http://localhost:5173",
			expected: []string{"https://planner.example", "http://localhost:5173"},
		},
		{
			name:     "trailing and leading commas",
			input:    ",https://planner.example,",
			expected: []string{"https://planner.example"},
		},
		{
			name:     "multiple consecutive commas",
			input:    "a.example,,b.example",
			expected: []string{"a.example", "b.example"},
		},
		{
			name:     "only commas and spaces",
			input:    ",  , , ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseCommaSeparatedList(tt.input))
		})
	}
}

func newTestServeCmd(t *testing.T, args ...string) (*cobra.Command, *serveOptions) {
	t.Helper()
	cmd := &cobra.Command{Use: "serve"}
	opts := &serveOptions{}
	bindServeFlags(cmd, opts)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, opts
}

func baseConfig() *config.Config {
	return &config.Config{
		HTTPAddr:           config.DefaultHTTPAddr,
		DatabaseURL:        "postgres://env",
		DefaultSchoolZone:  holidays.ZoneB,
		CORSAllowedOrigins: []string{"*"},
	}
}

func TestApplyServeFlags(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "")
	t.Setenv("METRICS_ADDR", "")

	t.Run("explicit flags override the environment", func(t *testing.T) {
		cmd, opts := newTestServeCmd(t,
			"--http-addr", ":9000",
			"--database-url", "postgres://flag",
			"--redis-addr", "localhost:6379",
			"--zone", "c",
			"--cors-origins", "https://a.example, https://b.example")
		cfg := baseConfig()

		require.NoError(t, applyServeFlags(cmd, opts, cfg))
		assert.Equal(t, ":9000", cfg.HTTPAddr)
		assert.Equal(t, "postgres://flag", cfg.DatabaseURL)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, holidays.ZoneC, cfg.DefaultSchoolZone)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	})

	t.Run("defaults leave the environment alone", func(t *testing.T) {
		cmd, opts := newTestServeCmd(t)
		cfg := baseConfig()

		require.NoError(t, applyServeFlags(cmd, opts, cfg))
		assert.Equal(t, baseConfig(), cfg)
		assert.False(t, opts.metricsEnabled)
	})

	t.Run("invalid zone", func(t *testing.T) {
		cmd, opts := newTestServeCmd(t, "--zone", "D")
		err := applyServeFlags(cmd, opts, baseConfig())
		assert.ErrorIs(t, err, holidays.ErrInvalidZone)
	})

	t.Run("unknown transport", func(t *testing.T) {
		cmd, opts := newTestServeCmd(t, "--transport", "sse")
		err := applyServeFlags(cmd, opts, baseConfig())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported transport type: sse")
	})
}

func TestApplyServeFlags_MetricsFromEnv(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("METRICS_ADDR", ":9191")

	cmd, opts := newTestServeCmd(t)
	require.NoError(t, applyServeFlags(cmd, opts, baseConfig()))
	assert.True(t, opts.metricsEnabled)
	assert.Equal(t, ":9191", opts.metricsAddr)

	cmd, opts = newTestServeCmd(t, "--metrics-addr", ":7000")
	require.NoError(t, applyServeFlags(cmd, opts, baseConfig()))
	assert.Equal(t, ":7000", opts.metricsAddr)
}
