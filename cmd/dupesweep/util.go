package main

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/user/dupesweep/internal/logging"
)

// parseSize parses a human-readable size string into bytes.
// Supports formats: "100", "1K", "1MB", "1GiB", etc.
func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func newLogger(verbose bool) *logging.Logger {
	cfg := logging.DefaultConfig()
	if !verbose {
		cfg.ConsoleLevel = cfg.FileLevel
	}
	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Println("warning: failed to open log file, logging to console only:", err)
		return logging.NewNop()
	}
	return logger
}
