package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Load reads investigator.yaml from configDir, expands environment
// variables, merges it over Defaults(), validates the result, and
// returns a ready-to-use Config.
func Load(configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("loading configuration")

	cfg := Defaults()
	cfg.configDir = configDir

	path := filepath.Join(configDir, "investigator.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("no investigator.yaml found, using defaults", "path", path)
		} else {
			return nil, NewLoadError("investigator.yaml", err)
		}
	} else {
		data = ExpandEnv(data)
		var userCfg Config
		if err := yaml.Unmarshal(data, &userCfg); err != nil {
			return nil, NewLoadError("investigator.yaml", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
		}
		if err := mergo.Merge(cfg, &userCfg, mergo.WithOverride); err != nil {
			return nil, NewLoadError("investigator.yaml", fmt.Errorf("merging over defaults: %w", err))
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration loaded",
		"server_address", cfg.Server.Address,
		"llm_target", cfg.LLM.Target,
		"tools", len(cfg.Tools))
	return cfg, nil
}
