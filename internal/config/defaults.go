package config

const (
	defaultScratchDir             = "~/.local/share/folio/scratch"
	defaultLogDir                 = "~/.local/share/folio/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultTaskTimeoutSeconds     = 30
	defaultWorkerHeapCapMB        = 128
	defaultMemorySampleSeconds    = 5
	defaultMemoryCeilingMB        = 100
	defaultGraceWindowSeconds     = 5
	defaultShutdownCeilingSeconds = 10
	defaultScratchTTLHours        = 24
	defaultHistoryRetentionDays   = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Pool: Pool{
			TaskTimeoutSeconds:     defaultTaskTimeoutSeconds,
			WorkerHeapCapMB:        defaultWorkerHeapCapMB,
			MemorySampleSeconds:    defaultMemorySampleSeconds,
			MemoryCeilingMB:        defaultMemoryCeilingMB,
			GraceWindowSeconds:     defaultGraceWindowSeconds,
			ShutdownCeilingSeconds: defaultShutdownCeilingSeconds,
		},
		Archive: Archive{
			ScratchTTLHours: defaultScratchTTLHours,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
