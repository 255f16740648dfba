package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/evaldash/internal/fakeapi"
)

func main() {
	var (
		addr       = flag.String("addr", ":3001", "Listen address")
		count      = flag.Int("count", fakeapi.DefaultCount, "Number of evaluations to generate")
		seed       = flag.Uint64("seed", fakeapi.DefaultSeed, "Generator seed")
		latency    = flag.Duration("latency", 0, "Artificial delay per request")
		outputFile = flag.String("output", "", "Write the generated evaluations to this JSON file")
		logFile    = flag.String("log", "", "Log file in addition to stdout")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fakeapi.ShowHelp()
		return
	}

	if err := fakeapi.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &fakeapi.Config{
		Addr:       *addr,
		Count:      *count,
		Seed:       *seed,
		Latency:    *latency,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := fakeapi.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("fake-evalapi failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
