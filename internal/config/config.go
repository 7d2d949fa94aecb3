// Package config loads the agent's YAML configuration file (SPEC_FULL.md
// §10.2), adapted from the teacher's internal/config/loader.go with the
// $include-directive recursive merge and JSON5 dual-format support
// dropped — justified in DESIGN.md, since this agent's configuration is a
// single flat document with no multi-file composition need.
package config

import "time"

// ProviderType is the closed set of provider shapes (spec.md §4.3).
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
	ProviderLocal  ProviderType = "local"
)

// StrategyName is the closed set of strategy identifiers a config may
// select.
type StrategyName string

const (
	StrategyCompleteTask StrategyName = "complete_task"
	StrategyConversation StrategyName = "conversation"
	StrategyPlanExecute  StrategyName = "plan_execute"
)

// ModelConfig mirrors internal/providers.ModelConfig's shape in the
// config file (spec.md §3's "Model config").
type ModelConfig struct {
	Name     string         `yaml:"name"`
	Endpoint string         `yaml:"endpoint,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
}

// ProviderConfig is one entry of the config file's providers map.
type ProviderConfig struct {
	Type      ProviderType `yaml:"type"`
	APIKeyEnv string       `yaml:"apiKeyEnv,omitempty"`
	Model     ModelConfig  `yaml:"model"`
}

// ExecutorConfig is one entry of the config file's executors mapping; its
// ID is the entry's key.
//
// Executors are decoded as an ordered slice, not a map, because Go's YAML
// decoder does not preserve map key order and SPEC_FULL.md §10.7 requires
// deterministic first-registered-wins tool routing across executors.
type ExecutorConfig struct {
	ID      string            `yaml:"id"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	WorkDir string            `yaml:"workdir,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
}

// NamedProvider pairs a provider config with the id it was declared
// under, preserving declaration order for the same reason ExecutorConfig
// is a slice rather than a map.
type NamedProvider struct {
	ID     string
	Config ProviderConfig
}

// Config is the root of the agent configuration file (spec.md §3's
// "Agent config").
type Config struct {
	DefaultProvider string           `yaml:"defaultProvider"`
	Providers       []NamedProvider  `yaml:"-"`
	Executors       []ExecutorConfig `yaml:"-"`
	SystemPrompt    string           `yaml:"systemPrompt"`
	Strategy        StrategyName     `yaml:"strategy"`
	MaxIterations   int              `yaml:"maxIterations"`
}

// Provider looks up a provider config by id.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p.Config, true
		}
	}
	return ProviderConfig{}, false
}
