// Package config provides declarative configuration for the analysis
// pipeline: ordered stage groups, execution bounds, and the model tier
// table that maps a requested tier to concrete completion models per role.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GroupMode is the ordering mode of a stage group.
type GroupMode string

const (
	// ModeSequential runs the group's single stage on the live context.
	ModeSequential GroupMode = "sequential"
	// ModeParallel fans the group's stages out against a shared snapshot.
	ModeParallel GroupMode = "parallel"
)

// StageGroup is one scheduling unit: either a single sequential stage or a
// bounded set of parallel stages with an optional inter-launch stagger.
type StageGroup struct {
	Name           string        `yaml:"name" json:"name"`
	Mode           GroupMode     `yaml:"mode" json:"mode"`
	Stages         []string      `yaml:"stages" json:"stages"`
	MaxConcurrency int           `yaml:"max_concurrency,omitempty" json:"max_concurrency,omitempty"`
	Stagger        time.Duration `yaml:"stagger,omitempty" json:"stagger,omitempty"`
}

// Validate checks group invariants.
func (g *StageGroup) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("StageGroup.Name is required")
	}
	if len(g.Stages) == 0 {
		return fmt.Errorf("group '%s' has no stages", g.Name)
	}
	switch g.Mode {
	case ModeSequential:
		if len(g.Stages) != 1 {
			return fmt.Errorf("sequential group '%s' must have exactly one stage, got %d", g.Name, len(g.Stages))
		}
	case ModeParallel:
		if g.MaxConcurrency <= 0 {
			return fmt.Errorf("parallel group '%s' requires max_concurrency > 0", g.Name)
		}
	default:
		return fmt.Errorf("group '%s' has unknown mode '%s'", g.Name, g.Mode)
	}
	if g.Stagger < 0 {
		return fmt.Errorf("group '%s' has negative stagger", g.Name)
	}
	return nil
}

// PipelineConfig defines an ordered list of stage groups plus run bounds.
type PipelineConfig struct {
	Name   string       `yaml:"name" json:"name"`
	Groups []StageGroup `yaml:"groups" json:"groups"`

	// RunTimeout is the wall-clock budget for one run. Stages still
	// in flight past it are cancelled; the timeout is transient for
	// retry classification.
	RunTimeout time.Duration `yaml:"run_timeout" json:"run_timeout"`

	// RetryBackoff is the pause before the single scheduler-level retry
	// of a transient stage failure.
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
}

// Validate validates the pipeline configuration.
func (p *PipelineConfig) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("PipelineConfig.Name is required")
	}
	if len(p.Groups) == 0 {
		return fmt.Errorf("pipeline '%s' has no groups", p.Name)
	}
	seen := make(map[string]bool)
	for i := range p.Groups {
		g := &p.Groups[i]
		if err := g.Validate(); err != nil {
			return err
		}
		for _, s := range g.Stages {
			if seen[s] {
				return fmt.Errorf("duplicate stage name: %s", s)
			}
			seen[s] = true
		}
	}
	return nil
}

// StageNames returns all stage names in group order.
func (p *PipelineConfig) StageNames() []string {
	var names []string
	for _, g := range p.Groups {
		names = append(names, g.Stages...)
	}
	return names
}

// =============================================================================
// MODEL TIERS
// =============================================================================

// Tier selects a completion-service quality/speed trade-off for a run.
type Tier string

const (
	TierFast     Tier = "fast"
	TierStandard Tier = "standard"
	TierDeep     Tier = "deep"
)

// ModelRole is the stage-facing model slot. Stages declare a role; the
// tier table resolves it to a concrete model name at run time.
type ModelRole string

const (
	RoleLite  ModelRole = "lite"
	RoleFlash ModelRole = "flash"
	RolePro   ModelRole = "pro"
)

// RoleModels maps the three model roles to concrete model names.
type RoleModels struct {
	Lite  string `yaml:"lite" json:"lite"`
	Flash string `yaml:"flash" json:"flash"`
	Pro   string `yaml:"pro" json:"pro"`
}

// Model resolves a role to its model name.
func (r RoleModels) Model(role ModelRole) string {
	switch role {
	case RoleLite:
		return r.Lite
	case RolePro:
		return r.Pro
	default:
		return r.Flash
	}
}

// TierTable maps tiers to role models. It is configuration the core
// accepts, not a hardcoded constant: hosts override it without code change.
type TierTable map[Tier]RoleModels

// DefaultTierTable returns the built-in tier mapping.
func DefaultTierTable() TierTable {
	return TierTable{
		TierFast: {
			Lite:  "gemini-2.5-flash-lite",
			Flash: "gemini-2.5-flash",
			Pro:   "gemini-3-flash-preview",
		},
		TierStandard: {
			Lite:  "gemini-3-flash-preview",
			Flash: "gemini-3-flash-preview",
			Pro:   "gemini-3-flash-preview",
		},
		TierDeep: {
			Lite:  "gemini-3-flash-preview",
			Flash: "gemini-3-flash-preview",
			Pro:   "gemini-3-pro-preview",
		},
	}
}

// Resolve returns the role models for a tier, falling back to standard.
func (t TierTable) Resolve(tier Tier) RoleModels {
	if m, ok := t[tier]; ok {
		return m
	}
	return t[TierStandard]
}

// Validate checks that every tier names all three roles.
func (t TierTable) Validate() error {
	if _, ok := t[TierStandard]; !ok {
		return fmt.Errorf("tier table missing '%s'", TierStandard)
	}
	for tier, m := range t {
		if m.Lite == "" || m.Flash == "" || m.Pro == "" {
			return fmt.Errorf("tier '%s' must name lite, flash and pro models", tier)
		}
	}
	return nil
}

// =============================================================================
// ENGINE CONFIG
// =============================================================================

// EngineConfig bundles everything a host tunes without code change.
type EngineConfig struct {
	Tiers TierTable `yaml:"tiers" json:"tiers"`

	// MinResumeLength rejects too-short input before the pipeline starts.
	MinResumeLength int `yaml:"min_resume_length" json:"min_resume_length"`

	// ScoutStagger is the inter-launch delay inside the scout group,
	// there to respect the completion service's rate limit.
	ScoutStagger time.Duration `yaml:"scout_stagger" json:"scout_stagger"`

	// ScoutConcurrency bounds the scout group's parallel fan-out.
	ScoutConcurrency int `yaml:"scout_concurrency" json:"scout_concurrency"`

	// HealRetries bounds per-tier repair attempts in the validator.
	HealRetries int `yaml:"heal_retries" json:"heal_retries"`

	// SessionTTL expires idle sessions.
	SessionTTL time.Duration `yaml:"session_ttl" json:"session_ttl"`

	RunTimeout   time.Duration `yaml:"run_timeout" json:"run_timeout"`
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
}

// DefaultEngineConfig returns production defaults.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Tiers:            DefaultTierTable(),
		MinResumeLength:  100,
		ScoutStagger:     2 * time.Second,
		ScoutConcurrency: 2,
		HealRetries:      2,
		SessionTTL:       time.Hour,
		RunTimeout:       5 * time.Minute,
		RetryBackoff:     2 * time.Second,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if err := c.Tiers.Validate(); err != nil {
		return err
	}
	if c.MinResumeLength <= 0 {
		return fmt.Errorf("min_resume_length must be positive")
	}
	if c.ScoutConcurrency <= 0 {
		return fmt.Errorf("scout_concurrency must be positive")
	}
	if c.HealRetries < 0 {
		return fmt.Errorf("heal_retries must be >= 0")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive")
	}
	return nil
}

// LoadEngineConfig reads an EngineConfig from a YAML file, layering the
// file's values over the defaults.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
