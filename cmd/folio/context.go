package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"folio/internal/config"
	"folio/internal/history"
	"folio/internal/logging"
	"folio/internal/pool"
	"folio/internal/taskmsg"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// session bundles the process pool and ledger for one CLI invocation.
type session struct {
	cfg    *config.Config
	pool   *pool.Pool
	ledger *history.Store
}

// withPool spins up a pool for the duration of fn and tears it down
// afterwards, workers included.
func (c *commandContext) withPool(fn func(*session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := fileLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	p := pool.New(cfg, logger, nil)
	if err := p.Start(); err != nil {
		return err
	}
	defer p.Shutdown()

	sess := &session{cfg: cfg, pool: p}
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			logger.Warn("history disabled for this run",
				logging.FieldComponent, "cli",
				"error", err)
		} else {
			sess.ledger = store
			defer store.Close()
		}
	}

	return fn(sess)
}

// withHistory opens the ledger without paying for a pool.
func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in the configuration")
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// run dispatches one task to the pool, records its outcome in the
// ledger when one is open, and returns the worker's result payload.
func (s *session) run(ctx context.Context, cmd *cobra.Command, operation string, payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode task payload: %w", err)
	}

	timeout := time.Duration(s.cfg.Pool.TaskTimeoutSeconds) * time.Second
	started := time.Now()
	result, err := s.pool.ExecuteTask(ctx, operation, raw, timeout, progressPrinter(cmd))

	if s.ledger != nil {
		entry := history.Entry{
			Operation:  operation,
			Outcome:    history.OutcomeFor(err),
			Duration:   time.Since(started),
			StartedAt:  started,
			FinishedAt: time.Now(),
		}
		if err != nil {
			entry.Error = err.Error()
		}
		// Recording uses a fresh context so a cancelled task still lands
		// in the ledger.
		recordCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = s.ledger.Record(recordCtx, entry)
		cancel()
	}

	return result, err
}

// fileLogger keeps structured logs out of command output by writing
// them to the shared log file only.
func fileLogger(cfg *config.Config) (*slog.Logger, error) {
	path := logging.FilePath(cfg)
	if path == "" {
		return logging.NewNop(), nil
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{path},
	})
}

// progressPrinter surfaces worker milestones on stderr for interactive
// runs and stays quiet when output is piped.
func progressPrinter(cmd *cobra.Command) func(taskmsg.Progress) {
	out := cmd.ErrOrStderr()
	f, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}
	return func(p taskmsg.Progress) {
		fmt.Fprintf(out, "%3.0f%% %s\n", p.Percent, p.Message)
	}
}
