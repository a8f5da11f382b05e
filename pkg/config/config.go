package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/xiaomiproject/aikefu/pkg/dotdir"
)

const configFile = "config.toml"

// CurrentV is the config.toml schema version this build reads and writes.
// A file without a version is treated as CurrentV.
const CurrentV = 0

// Configer reads and writes config.toml inside a resolved .aikefu/ directory.
type Configer struct {
	targetPath string
}

// NewConfiger resolves the .aikefu/ directory for override. When none is
// found the Configer serves defaults and refuses to save.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return &Configer{}, nil
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return &Configer{targetPath: path}, nil
}

// GetTarget returns the config.toml path, or "" without a .aikefu/ directory.
func (c *Configer) GetTarget() string {
	return c.targetPath
}

// ValidConfigKeys lists the settable keys grouped by section.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(orderedKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// IsValidConfigKey reports whether key can be used with get and set.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// LoadConfig reads config.toml. Keys the file leaves unset keep their
// defaults, and an absent file is all defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return NewDefaultConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}
	fillDefaults(cfg)
	return cfg, nil
}

func fillDefaults(cfg *Config) {
	def := NewDefaultConfig()
	for _, key := range orderedKeys {
		k := configKeys[key]
		if k.get(cfg) == "" {
			_ = k.set(cfg, k.get(def))
		}
	}
	if len(cfg.LLM.Providers) == 0 {
		cfg.LLM.Providers = def.LLM.Providers
	}
}

// SaveConfig writes cfg to config.toml with owner-only permissions.
func (c *Configer) SaveConfig(cfg *Config) error {
	switch {
	case cfg == nil:
		return errors.New("cannot save nil config")
	case c.targetPath == "":
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SetConfigValue updates a single key in config.toml.
func (c *Configer) SetConfigValue(key, value string) error {
	k, err := lookupKey(key)
	if err != nil {
		return err
	}
	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of key as a string.
func (c *Configer) GetConfigValue(key string) (string, error) {
	k, err := lookupKey(key)
	if err != nil {
		return "", err
	}
	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return k.get(cfg), nil
}

func lookupKey(key string) (configKeyInfo, error) {
	k, ok := configKeys[key]
	if !ok {
		return configKeyInfo{}, fmt.Errorf("unknown config key: %q", key)
	}
	return k, nil
}

// ApplyViper copies every non-empty scalar viper resolved into cfg, so
// flags and AIKEFU_* variables win over the file.
func ApplyViper(v *viper.Viper, cfg *Config) error {
	for _, key := range orderedKeys {
		if val := v.GetString(key); val != "" {
			if err := configKeys[key].set(cfg, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseConfigTOML decodes config.toml contents and rejects unknown versions.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return cfg, nil
}
