package logging

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	if got := FromContext(ctx); got != DefaultLogger() {
		t.Errorf("logger without context value, got: %v, expected default logger", got)
	}

	logger := NewLogger("debug", true)
	ctx = WithLogger(ctx, logger)
	if got := FromContext(ctx); got != logger {
		t.Errorf("logger from context, got: %v, expected: %v", got, logger)
	}
}

func TestLevelToZapLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected zapcore.Level
	}{
		{in: "debug", expected: zapcore.DebugLevel},
		{in: "INFO", expected: zapcore.InfoLevel},
		{in: "warn", expected: zapcore.WarnLevel},
		{in: "warning", expected: zapcore.WarnLevel},
		{in: "error", expected: zapcore.ErrorLevel},
		{in: "", expected: zapcore.InfoLevel},
		{in: "nonsense", expected: zapcore.InfoLevel},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			if got := levelToZapLevel(test.in); got != test.expected {
				t.Errorf("level for %q, got: %v, expected: %v", test.in, got, test.expected)
			}
		})
	}
}

func TestNewLoggerFromConfigWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pqm.log")
	logger := NewLoggerFromConfig(&Config{Level: "info", File: path, MaxSizeMB: 1})
	logger.Infow("hello", "component", "test")
	_ = logger.Sync()
}
