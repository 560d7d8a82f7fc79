package logging

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/decker502/sparkfx/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
		want zapcore.Level
	}{
		{"console debug", config.LoggingConfig{Level: "debug", Format: "console"}, zapcore.DebugLevel},
		{"json warn", config.LoggingConfig{Level: "warn", Format: "json"}, zapcore.WarnLevel},
		{"unknown level falls back", config.LoggingConfig{Level: "chatty"}, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer l.Sync()
			if !l.Core().Enabled(tt.want) {
				t.Errorf("level %v not enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("level below %v enabled", tt.want)
			}
		})
	}
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tui.log")
	l, err := ToFile(config.LoggingConfig{Level: "info"}, path)
	if err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}
	l.Info("hello")
	_ = l.Sync()
}
