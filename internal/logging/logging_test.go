package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level       string
		development bool
		enabled     zapcore.Level
		disabled    zapcore.Level
	}{
		{"info", false, zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug", true, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", false, zapcore.WarnLevel, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		logger, err := New(tt.level, tt.development)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", tt.level, err)
		}
		if !logger.Core().Enabled(tt.enabled) {
			t.Errorf("New(%q): expected %s enabled", tt.level, tt.enabled)
		}
		if logger.Core().Enabled(tt.disabled) {
			t.Errorf("New(%q): expected %s disabled", tt.level, tt.disabled)
		}
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New("verbose", false); err == nil {
		t.Error("Expected error for unknown level")
	}
}
