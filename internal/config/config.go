// Package config loads the engine configuration of spec §6: a JSON
// config.json overlaid with WRECKIT_* environment variables, plus an
// optional YAML sidecar file for the quality-gate check list.
//
// The load-then-validate shape is grounded on the teacher's
// internal/config package (Load reads, then calls Validate, which also
// fills in defaults); the env-overlay and YAML-sidecar pieces are
// SPEC_FULL.md §4.2a expansions layered on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MergeMode controls PR-phase behavior per spec §6.
type MergeMode string

const (
	MergeModePR     MergeMode = "pr"
	MergeModeDirect MergeMode = "direct"
)

// AgentConfig is the opaque-to-the-engine agent configuration union
// (spec §6: "Agent config union | Opaque to the engine; passed to
// AgentDriver."). wreckit still needs concrete fields to construct an
// agent.RunConfig, so this names the subset every AgentDriver backend
// needs — command and model — without the engine interpreting them.
type AgentConfig struct {
	Command string `json:"command" mapstructure:"command" validate:"required"`
	Model   string `json:"model,omitempty" mapstructure:"model"`
}

// Check is one named pre-push quality gate (spec §4.7.5 step 4).
type Check struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Run     string `json:"run" yaml:"run" validate:"required"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the check should run (defaults to true).
func (c Check) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// PRChecks groups every pre-push / merge-safety setting from spec §6.
type PRChecks struct {
	AllowUnsafeDirectMerge bool     `json:"allow_unsafe_direct_merge"`
	AllowedRemotePatterns  []string `json:"allowed_remote_patterns" validate:"required,min=1"`
	Checks                 []Check  `json:"checks,omitempty"`
}

// BranchCleanup controls post-merge branch cleanup (spec §6).
type BranchCleanup struct {
	Enabled      bool `json:"enabled"`
	DeleteRemote bool `json:"delete_remote"`
}

// Config is the engine configuration consumed by the orchestrator and
// phase runners, per spec §6's option table.
type Config struct {
	BaseBranch     string        `json:"base_branch" mapstructure:"base_branch" validate:"required"`
	BranchPrefix   string        `json:"branch_prefix" mapstructure:"branch_prefix" validate:"required"`
	MergeMode      MergeMode     `json:"merge_mode" mapstructure:"merge_mode" validate:"required,oneof=pr direct"`
	MaxIterations  int           `json:"max_iterations" mapstructure:"max_iterations" validate:"min=1"`
	TimeoutSeconds int           `json:"timeout_seconds" mapstructure:"timeout_seconds" validate:"min=1"`
	PRChecks       PRChecks      `json:"pr_checks" mapstructure:"pr_checks" validate:"required"`
	BranchCleanup  BranchCleanup `json:"branch_cleanup" mapstructure:"branch_cleanup"`
	Agent          AgentConfig   `json:"agent" mapstructure:"agent" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a Config with the spec's sensible defaults, to be
// overridden by config.json and the WRECKIT_* env overlay.
func Default() Config {
	return Config{
		BranchPrefix:   "wreckit/",
		MergeMode:      MergeModePR,
		MaxIterations:  10,
		TimeoutSeconds: 600,
		PRChecks: PRChecks{
			AllowedRemotePatterns: []string{},
		},
		BranchCleanup: BranchCleanup{Enabled: true},
	}
}

// Load reads configPath (config.json), overlays WRECKIT_* environment
// variables via viper, and validates the result. checksPath, if non-empty
// and present on disk, supplements PRChecks.Checks from a YAML sidecar
// file (spec §4.2a) — entries there are appended after any declared
// directly in config.json.
func Load(configPath, checksPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	applyEnvOverlay(&cfg)

	if checksPath != "" {
		if _, err := os.Stat(checksPath); err == nil {
			extra, err := loadChecksYAML(checksPath)
			if err != nil {
				return nil, err
			}
			cfg.PRChecks.Checks = append(cfg.PRChecks.Checks, extra...)
		}
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverlay lets WRECKIT_* environment variables override any field
// in Config, using viper's automatic env binding the way
// hugo-lorenzo-mato/quorum-ai overlays its own config (e.g.
// WRECKIT_BASE_BRANCH, WRECKIT_MERGE_MODE, WRECKIT_MAX_ITERATIONS).
func applyEnvOverlay(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("WRECKIT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{"base_branch", "branch_prefix", "merge_mode", "max_iterations", "timeout_seconds"} {
		if !v.IsSet(key) {
			continue
		}
		switch key {
		case "base_branch":
			cfg.BaseBranch = v.GetString(key)
		case "branch_prefix":
			cfg.BranchPrefix = v.GetString(key)
		case "merge_mode":
			cfg.MergeMode = MergeMode(v.GetString(key))
		case "max_iterations":
			cfg.MaxIterations = v.GetInt(key)
		case "timeout_seconds":
			cfg.TimeoutSeconds = v.GetInt(key)
		}
	}
}

// checksFile is the top-level shape of an optional .wreckit/checks.yaml.
type checksFile struct {
	Checks []Check `yaml:"checks"`
}

func loadChecksYAML(path string) ([]Check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cf checksFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, c := range cf.Checks {
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("%s: invalid check %q: %w", path, c.Name, err)
		}
	}
	return cf.Checks, nil
}
