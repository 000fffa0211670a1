package config

import "time"

// Defaults returns a Config populated with every documented default,
// suitable as the mergo.Merge base: user YAML is merged on top with
// WithOverride, so any zero-valued user field falls back to these.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Target:         "localhost:50051",
			RequestTimeout: 60 * time.Second,
			Insecure:       true,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			MigrationsDir:   "pkg/store/migrations",
		},
		Scratchpad: ScratchpadConfig{
			BaseDir: "./data/scratchpads",
		},
		Cache: CacheConfig{
			MaxSize: 100,
		},
		Executor: ExecutorConfig{
			MaxConcurrent: 5,
			Timeout:       30 * time.Second,
		},
		Compaction: CompactionConfig{
			Preset:       "incident",
			TokenBudget:  60_000,
			KeepToolUses: 5,
		},
		Orchestrator: OrchestratorConfig{
			MaxIterations:       25,
			MaxHypothesesPerRun: 10,
		},
		AgentLoop: AgentLoopConfig{
			MaxIterations:    15,
			ContextThreshold: 40_000,
		},
		Telemetry: TelemetryConfig{
			MetricsAddress: ":9090",
		},
	}
}
