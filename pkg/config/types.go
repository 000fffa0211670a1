// Package config loads and validates the investigation engine's YAML
// configuration, grounded on the teacher's pkg/config (loader.go,
// merge.go, validator.go): env-var expansion, mergo-based
// defaults-merging, and a dedicated validator pass before the config is
// handed to the rest of the program.
package config

import "time"

// Config is the fully resolved, validated configuration for one run of
// the investigation engine.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	LLM          LLMConfig          `yaml:"llm"`
	Database     DatabaseConfig     `yaml:"database"`
	Scratchpad   ScratchpadConfig   `yaml:"scratchpad"`
	Cache        CacheConfig        `yaml:"cache"`
	Executor     ExecutorConfig     `yaml:"executor"`
	Compaction   CompactionConfig   `yaml:"compaction"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	AgentLoop    AgentLoopConfig    `yaml:"agent_loop"`
	Tools        map[string]ToolConfig `yaml:"tools"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	configDir string
}

// ConfigDir returns the directory this config was loaded from, for
// resolving any relative paths it declares (e.g. migration files).
func (c *Config) ConfigDir() string { return c.configDir }

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LLMConfig configures the gRPC LLM client.
type LLMConfig struct {
	Target         string        `yaml:"target"` // gRPC dial target, e.g. "localhost:50051"
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Insecure       bool          `yaml:"insecure"` // skip TLS, for local development
}

// DatabaseConfig configures the Postgres persistence layer.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrationsDir   string        `yaml:"migrations_dir"`
}

// ScratchpadConfig configures the append-only session log.
type ScratchpadConfig struct {
	BaseDir    string         `yaml:"base_dir"`
	ToolLimits map[string]int `yaml:"tool_limits"`
}

// CacheConfig configures the tool-result LRU cache.
type CacheConfig struct {
	MaxSize int                      `yaml:"max_size"`
	TTLs    map[string]time.Duration `yaml:"ttls"`
}

// ExecutorConfig configures the bounded-concurrency tool-call dispatcher.
type ExecutorConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	Timeout       time.Duration `yaml:"timeout"`
}

// CompactionConfig configures the context compactor.
type CompactionConfig struct {
	Preset       string `yaml:"preset"` // "incident" | "research" | "balanced"
	TokenBudget  int    `yaml:"token_budget"`
	KeepToolUses int    `yaml:"keep_tool_uses"`
}

// OrchestratorConfig configures the incident investigation loop.
type OrchestratorConfig struct {
	MaxIterations       int `yaml:"max_iterations"`
	MaxHypothesesPerRun int `yaml:"max_hypotheses_per_run"`
}

// AgentLoopConfig configures the free-form query agent.
type AgentLoopConfig struct {
	MaxIterations    int `yaml:"max_iterations"`
	ContextThreshold int `yaml:"context_threshold"`
}

// ToolConfig is per-tool wiring: which concrete backend to construct and
// its connection details.
type ToolConfig struct {
	Type     string            `yaml:"type"` // "vendor_metrics" | "generic_alarms" | "generic_logs" | "cloud_inventory"
	Endpoint string            `yaml:"endpoint"`
	Params   map[string]string `yaml:"params"`
}

// KnowledgeConfig configures the knowledge retriever backend.
type KnowledgeConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	LogGroup string `yaml:"log_group"` // fallback log group for log-query enrichment
}

// TelemetryConfig configures OpenTelemetry tracing and Prometheus metrics.
type TelemetryConfig struct {
	TracingEnabled bool   `yaml:"tracing_enabled"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	MetricsAddress string `yaml:"metrics_address"`
}
