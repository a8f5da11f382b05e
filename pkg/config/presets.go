package config

import (
	"fmt"
	"slices"
	"strings"
)

var presetNames = []string{"deepseek", "dashscope", "openai", "ollama"}

// ValidPresetNames returns the names PresetConfig accepts.
func ValidPresetNames() []string {
	return slices.Clone(presetNames)
}

// PresetConfig returns the default config with its default model switched
// to the named provider. The openai and ollama presets also register a
// provider for that model.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	add := func(p ProviderConfig) {
		p.ConnectTimeout = defaultConnectTimeout
		p.ReadTimeout = defaultReadTimeout
		cfg.LLM.Providers = append(cfg.LLM.Providers, p)
		cfg.LLM.DefaultModel = p.Model
	}

	switch strings.ToLower(name) {
	case "deepseek":
		cfg.LLM.DefaultModel = "deepseek-chat"
	case "dashscope":
		cfg.LLM.DefaultModel = "qwen-plus"
	case "openai":
		add(ProviderConfig{Model: "gpt-4o-mini", Type: "openai", Credential: "openai"})
	case "ollama":
		add(ProviderConfig{Model: "qwen2.5", Type: "ollama", Endpoint: "http://localhost:11434"})
	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(presetNames, ", "))
	}
	return cfg, nil
}
