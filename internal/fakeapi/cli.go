package fakeapi

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/evaldash/pkg/logger"
)

// File permission constants.
const (
	logFilePermission   = 0o600
	directoryPermission = 0o750
)

// SetupLogging initialises the global logger, teeing to logFile when set.
func SetupLogging(logFile string, verbose bool) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}

	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return nil
}

// ShowHelp prints usage information for the stub evaluation API.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`evaldash fake evaluation API
============================

Serves deterministic synthetic evaluations on the collaborator routes
evaldash consumes, for local development.

Usage:
  go run ./cmd/fake-evalapi [options]

Options:
  -addr string
        Listen address (default ":3001")
  -count int
        Number of evaluations to generate (default 120)
  -seed uint
        Generator seed (default 42)
  -latency duration
        Artificial delay per request (default 0)
  -output string
        Write the generated evaluations to this JSON file
  -log string
        Log file in addition to stdout
  -verbose
        Enable debug logging
  -help
        Show this help message

Routes:
  GET  /teachers/evaluations
  GET  /teachers/evaluations/{id}
  POST /teachers/evaluations/{id}/decision
`)
}
