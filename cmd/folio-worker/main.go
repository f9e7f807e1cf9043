// Command folio-worker executes one document task at a time on behalf
// of the host process pool. The protocol runs over stdin/stdout, so the
// logger writes to stderr only.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"folio/internal/logging"
	"folio/internal/worker"
)

func main() {
	scratchRoot := flag.String("scratch-root", os.TempDir(), "directory for materialized archive images")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	heapCapMB := flag.Int("heap-cap-mb", 0, "soft heap ceiling in MiB (0 honors GOMEMLIMIT from the environment)")
	flag.Parse()

	logger, err := logging.New(logging.Options{
		Level:       *logLevel,
		Format:      "json",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "folio-worker: init logger: %v\n", err)
		os.Exit(1)
	}

	if *heapCapMB > 0 {
		debug.SetMemoryLimit(int64(*heapCapMB) << 20)
	}
	if os.Getenv("FOLIO_WORKER") == "" {
		logger.Warn("running without the background-worker environment marker",
			logging.FieldComponent, "worker")
	}

	// Single-task by design: a termination signal means exit now, no
	// drain phase. Exit code zero tells the pool this was a graceful
	// shutdown, not a crash.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-signals
		os.Exit(0)
	}()

	w := worker.New(*scratchRoot, logger)
	if err := w.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
		logger.Error("worker loop failed",
			logging.FieldComponent, "worker",
			"error", err)
		os.Exit(1)
	}
}
