package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/evaldash/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Run generates the data set and serves it until ctx is cancelled.
func Run(ctx context.Context, config *Config) error {
	log := logger.Named("fake-evalapi")
	records := Generate(config.Seed, config.Count, time.Now())

	log.Info(ctx, "generated evaluations",
		logger.Int("count", len(records)),
		logger.Int("seed", int(config.Seed)),
		logger.Duration("latency", config.Latency))

	if config.OutputFile != "" {
		if err := saveRecords(config.OutputFile, records); err != nil {
			log.Warn(ctx, "failed to save evaluations to file", logger.Error(err))
		} else {
			log.Info(ctx, "evaluations saved to file", logger.String("filename", config.OutputFile))
		}
	}

	srv := &http.Server{
		Addr:              config.Addr,
		Handler:           NewServer(records, WithLatency(config.Latency)),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", logger.String("addr", config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(context.Background(), "stopped")
	return nil
}

// saveRecords writes records as an indented JSON array.
func saveRecords(filename string, records any) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal evaluations: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}
