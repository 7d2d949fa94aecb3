package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawConfig mirrors Config's scalar fields plus the two maps whose
// encounter order must be preserved; yaml.Node's mapping representation,
// unlike map[string]T, keeps the file's key order so Load can build
// Config's ordered Providers/Executors slices deterministically.
type rawConfig struct {
	DefaultProvider string       `yaml:"defaultProvider"`
	Providers       yaml.Node    `yaml:"providers"`
	Executors       yaml.Node    `yaml:"executors"`
	SystemPrompt    string       `yaml:"systemPrompt"`
	Strategy        StrategyName `yaml:"strategy"`
	MaxIterations   int          `yaml:"maxIterations"`
}

// Load reads and parses the YAML configuration file at path. Environment
// variable placeholders (e.g. "${OPENAI_API_KEY}") are expanded via
// os.ExpandEnv before parsing, matching the teacher's loader. Unknown
// top-level keys fail decoding (yaml.v3's KnownFields(true) strictness)
// so a typo'd top-level key surfaces immediately. Keys inside a providers
// or executors entry are decoded through yaml.Node.Decode without that
// check, so unknown keys there are ignored.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))

	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)

	var raw rawConfig
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := &Config{
		DefaultProvider: raw.DefaultProvider,
		SystemPrompt:    raw.SystemPrompt,
		Strategy:        raw.Strategy,
		MaxIterations:   raw.MaxIterations,
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 20
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyCompleteTask
	}

	providers, err := decodeOrderedProviders(&raw.Providers)
	if err != nil {
		return nil, fmt.Errorf("config: %s: providers: %w", path, err)
	}
	cfg.Providers = providers

	executors, err := decodeOrderedExecutors(&raw.Executors)
	if err != nil {
		return nil, fmt.Errorf("config: %s: executors: %w", path, err)
	}
	cfg.Executors = executors

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// decodeOrderedProviders walks a YAML mapping node's key/value pairs in
// file order (yaml.Node.Content interleaves key, value, key, value, ...)
// rather than decoding into a Go map, which would lose that order.
func decodeOrderedProviders(node *yaml.Node) ([]NamedProvider, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping")
	}
	out := make([]NamedProvider, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		idNode, valueNode := node.Content[i], node.Content[i+1]
		var pc ProviderConfig
		if err := valueNode.Decode(&pc); err != nil {
			return nil, fmt.Errorf("%s: %w", idNode.Value, err)
		}
		out = append(out, NamedProvider{ID: idNode.Value, Config: pc})
	}
	return out, nil
}

func decodeOrderedExecutors(node *yaml.Node) ([]ExecutorConfig, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping")
	}
	out := make([]ExecutorConfig, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		idNode, valueNode := node.Content[i], node.Content[i+1]
		var ec ExecutorConfig
		if err := valueNode.Decode(&ec); err != nil {
			return nil, fmt.Errorf("%s: %w", idNode.Value, err)
		}
		ec.ID = idNode.Value
		out = append(out, ec)
	}
	return out, nil
}

// Validate checks the minimal invariants Load cannot express through
// struct decoding alone.
func (c *Config) Validate() error {
	if c.DefaultProvider == "" {
		return fmt.Errorf("defaultProvider is required")
	}
	if _, ok := c.Provider(c.DefaultProvider); !ok {
		return fmt.Errorf("defaultProvider %q is not declared in providers", c.DefaultProvider)
	}
	for _, p := range c.Providers {
		switch p.Config.Type {
		case ProviderOpenAI, ProviderGemini, ProviderLocal:
		default:
			return fmt.Errorf("provider %q: unrecognized type %q", p.ID, p.Config.Type)
		}
		if p.Config.Model.Name == "" {
			return fmt.Errorf("provider %q: model.name is required", p.ID)
		}
	}
	for _, e := range c.Executors {
		if e.Command == "" {
			return fmt.Errorf("executor %q: command is required", e.ID)
		}
	}
	return nil
}
