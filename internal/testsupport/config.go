// Package testsupport provides helpers shared across Folio test suites.
package testsupport

import (
	"path/filepath"
	"testing"

	"folio/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test and timings tightened for fast test runs.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Pool.MaxConcurrency = 2

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithMaxConcurrency overrides the pool concurrency cap.
func WithMaxConcurrency(n int) ConfigOption {
	return func(c *config.Config) {
		c.Pool.MaxConcurrency = n
	}
}

// WithTaskTimeout overrides the default task timeout in seconds.
func WithTaskTimeout(seconds int) ConfigOption {
	return func(c *config.Config) {
		c.Pool.TaskTimeoutSeconds = seconds
	}
}
