package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewSlogAdapter_WithNil(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	if adapter.logger == nil {
		t.Error("adapter.logger should not be nil when created with nil")
	}
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(logger).With("calendar_id", "c1")

	adapter.Debug("d", "k", 1)
	adapter.Info("i")
	adapter.Warn("w")
	adapter.Error("e")

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "level=INFO", "level=WARN", "level=ERROR", "calendar_id=c1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestSlogAdapter_Logger(t *testing.T) {
	logger := slog.Default()
	if NewSlogAdapter(logger).Logger() != logger {
		t.Error("Logger() should return the underlying logger")
	}
}

func TestDiscard(t *testing.T) {
	// Should not panic
	Discard().Error("dropped")
	DefaultLogger().Info("default")
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
