package config

import "fmt"

// Validator validates a loaded Config comprehensively, fail-fast at the
// first broken section.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for cfg.
func NewValidator(cfg *Config) *Validator { return &Validator{cfg: cfg} }

// Validate runs NewValidator(cfg).ValidateAll, for callers that don't
// need to hold onto the Validator.
func Validate(cfg *Config) error { return NewValidator(cfg).ValidateAll() }

// ValidateAll validates every section in dependency order: server →
// LLM → database → executor/compaction/orchestrator tuning → tools.
func (v *Validator) ValidateAll() error {
	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := v.validateLLM(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := v.validateDatabase(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := v.validateExecutor(); err != nil {
		return fmt.Errorf("executor: %w", err)
	}
	if err := v.validateCompaction(); err != nil {
		return fmt.Errorf("compaction: %w", err)
	}
	if err := v.validateOrchestrator(); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	if err := v.validateTools(); err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	return nil
}

func (v *Validator) validateServer() error {
	if v.cfg.Server.Address == "" {
		return NewValidationError("server", "address", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateLLM() error {
	if v.cfg.LLM.Target == "" {
		return NewValidationError("llm", "target", ErrMissingRequiredField)
	}
	if v.cfg.LLM.RequestTimeout <= 0 {
		return NewValidationError("llm", "request_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateDatabase() error {
	if v.cfg.Database.DSN == "" {
		return NewValidationError("database", "dsn", ErrMissingRequiredField)
	}
	if v.cfg.Database.MaxOpenConns <= 0 {
		return NewValidationError("database", "max_open_conns", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateExecutor() error {
	if v.cfg.Executor.MaxConcurrent <= 0 {
		return NewValidationError("executor", "max_concurrent", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if v.cfg.Executor.Timeout <= 0 {
		return NewValidationError("executor", "timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

var validPresets = map[string]bool{"incident": true, "research": true, "balanced": true}

func (v *Validator) validateCompaction() error {
	if !validPresets[v.cfg.Compaction.Preset] {
		return NewValidationError("compaction", "preset", fmt.Errorf("%w: %q (must be incident|research|balanced)", ErrInvalidValue, v.cfg.Compaction.Preset))
	}
	if v.cfg.Compaction.TokenBudget <= 0 {
		return NewValidationError("compaction", "token_budget", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateOrchestrator() error {
	if v.cfg.Orchestrator.MaxIterations <= 0 {
		return NewValidationError("orchestrator", "max_iterations", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if v.cfg.Orchestrator.MaxHypothesesPerRun <= 0 {
		return NewValidationError("orchestrator", "max_hypotheses_per_run", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

var validToolTypes = map[string]bool{
	"vendor_metrics": true, "generic_alarms": true, "generic_logs": true, "cloud_inventory": true,
}

func (v *Validator) validateTools() error {
	for name, t := range v.cfg.Tools {
		if !validToolTypes[t.Type] {
			return NewValidationError("tools", name+".type", fmt.Errorf("%w: %q", ErrInvalidValue, t.Type))
		}
	}
	return nil
}
