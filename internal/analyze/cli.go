package analyze

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/hoopvision/pkg/logger"
)

// SetupLogging sends logs to stderr so stdout carries only the report.
func SetupLogging(level, format string) error {
	if err := logger.InitWithWriter(os.Stderr, format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevelString(level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the analyze tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Hoop Vision offline analyzer
============================

Replays a recorded detection stream (one JSON frame per line) through a
session and prints the box score.

Usage:
  analyze [options] [file]

Reads standard input when no file is given. Court calibration and windows
come from the usual configuration (HOOP_CONFIG file and HOOP_* variables);
flags override them.

Options:
  -session string
        Session id (default: random UUID)
  -skip int
        Analyze every Nth frame
  -workers int
        Number of decode workers
  -archive string
        SQLite archive to store the session in
  -events string
        Write the game log as JSON to this file ("-" for stdout)
  -help
        Show this help message

Examples:
  analyze game.ndjson
  tracker --emit-ndjson game.mp4 | analyze -skip 1 -events highlights.json
`)
}
