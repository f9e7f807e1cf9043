package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePool(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validatePool() error {
	if c.Pool.MaxConcurrency < 0 {
		return errors.New("pool.max_concurrency must not be negative")
	}
	if c.Pool.TaskTimeoutSeconds < 1 {
		return errors.New("pool.task_timeout_seconds must be at least 1")
	}
	if c.Pool.WorkerHeapCapMB < 16 {
		return errors.New("pool.worker_heap_cap_mb must be at least 16")
	}
	if c.Pool.MemorySampleSeconds < 1 {
		return errors.New("pool.memory_sample_seconds must be at least 1")
	}
	if c.Pool.MemoryCeilingMB < 1 {
		return errors.New("pool.memory_ceiling_mb must be at least 1")
	}
	if c.Pool.GraceWindowSeconds < 1 {
		return errors.New("pool.grace_window_seconds must be at least 1")
	}
	if c.Pool.ShutdownCeilingSeconds < c.Pool.GraceWindowSeconds {
		return errors.New("pool.shutdown_ceiling_seconds must not be shorter than the grace window")
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.ScratchTTLHours < 1 {
		return errors.New("archive.scratch_ttl_hours must be at least 1")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.RetentionDays < 1 {
		return errors.New("history.retention_days must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
