package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"unknown": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		LogDir:         dir,
		FileLevel:      zapcore.InfoLevel,
		ConsoleLevel:   zapcore.InfoLevel,
		ConsoleEnabled: false,
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello", String("key", "value"))
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "dupesweep.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty log file")
	}
}

func TestNewNilConfigUsesDefaults(t *testing.T) {
	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	_ = os.Chdir(t.TempDir())

	logger, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) error = %v", err)
	}
	logger.Info("defaults")
	_ = logger.Sync()
}

func TestNewNopDiscardsLogs(t *testing.T) {
	logger := NewNop()
	logger.Info("discarded")
	logger.Error("also discarded")
	_ = logger.Sync()
}

func TestWithAndNamed(t *testing.T) {
	logger := NewNop()
	child := logger.With(String("scope", "test")).Named("sub")
	child.Debug("child message")
}
