package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePool()
	c.normalizeArchive()
	c.normalizeHistory()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePool() {
	c.Pool.WorkerBinary = strings.TrimSpace(c.Pool.WorkerBinary)
	if c.Pool.TaskTimeoutSeconds == 0 {
		c.Pool.TaskTimeoutSeconds = defaultTaskTimeoutSeconds
	}
	if c.Pool.WorkerHeapCapMB == 0 {
		c.Pool.WorkerHeapCapMB = defaultWorkerHeapCapMB
	}
	if c.Pool.MemorySampleSeconds == 0 {
		c.Pool.MemorySampleSeconds = defaultMemorySampleSeconds
	}
	if c.Pool.MemoryCeilingMB == 0 {
		c.Pool.MemoryCeilingMB = defaultMemoryCeilingMB
	}
	if c.Pool.GraceWindowSeconds == 0 {
		c.Pool.GraceWindowSeconds = defaultGraceWindowSeconds
	}
	if c.Pool.ShutdownCeilingSeconds == 0 {
		c.Pool.ShutdownCeilingSeconds = defaultShutdownCeilingSeconds
	}
}

func (c *Config) normalizeArchive() {
	if c.Archive.ScratchTTLHours == 0 {
		c.Archive.ScratchTTLHours = defaultScratchTTLHours
	}
}

func (c *Config) normalizeHistory() {
	if c.History.RetentionDays == 0 {
		c.History.RetentionDays = defaultHistoryRetentionDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
