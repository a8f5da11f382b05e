package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent aikefu configuration stored as config.toml
// in the .aikefu/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Storage StorageConfig `toml:"storage"`
	Server  ServerConfig  `toml:"server"`
	Cache   CacheConfig   `toml:"cache"`
	LLM     LLMConfig     `toml:"llm"`
	Events  EventsConfig  `toml:"events"`
	Client  ClientConfig  `toml:"client"`
}

// StorageConfig selects the persistence driver for users, history and knowledge.
type StorageConfig struct {
	// Driver is one of "memory", "sqlite" or "postgres".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// ServerConfig holds HTTP server and stream dispatch settings.
type ServerConfig struct {
	Listen        string `toml:"listen,omitempty"`
	StreamWorkers uint   `toml:"stream_workers,omitempty"`
	StreamQueue   uint   `toml:"stream_queue,omitempty"`
}

// CacheConfig selects the answer cache backend.
type CacheConfig struct {
	// Provider is "memory" or "redis".
	Provider  string `toml:"provider,omitempty"`
	RedisAddr string `toml:"redis_addr,omitempty"`
}

// LLMConfig holds the provider registry definition.
type LLMConfig struct {
	DefaultModel      string           `toml:"default_model,omitempty"`
	UnavailableAnswer string           `toml:"unavailable_answer,omitempty"`
	EmptyAnswer       string           `toml:"empty_answer,omitempty"`
	Providers         []ProviderConfig `toml:"providers,omitempty"`
}

// ProviderConfig registers one model with the provider registry.
type ProviderConfig struct {
	// Model is the registry key and the model name sent upstream.
	Model string `toml:"model"`

	// Type is the client implementation: "openai-compatible", "openai" or "ollama".
	Type     string `toml:"type"`
	Endpoint string `toml:"endpoint,omitempty"`

	// Credential names the credentials.toml entry holding the API key.
	Credential string `toml:"credential,omitempty"`

	// APIKeyEnv names an environment variable that overrides the stored key.
	APIKeyEnv string `toml:"api_key_env,omitempty"`

	// Timeouts are Go duration strings such as "10s".
	ConnectTimeout string `toml:"connect_timeout,omitempty"`
	ReadTimeout    string `toml:"read_timeout,omitempty"`

	RateLimitRPM uint `toml:"rate_limit_rpm,omitempty"`
}

// EventsConfig enables publishing answer events to Kafka.
type EventsConfig struct {
	// KafkaBrokers is a comma-separated broker list. Empty disables publishing.
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running server.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
	Username  string `toml:"username,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all scalar config keys.
// Provider registrations are edited in config.toml directly.
var configKeys = map[string]configKeyInfo{
	"storage.driver":         stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":    stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn":   stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"server.listen":          stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.stream_workers":  uintKey("server.stream_workers", func(c *Config) *uint { return &c.Server.StreamWorkers }),
	"server.stream_queue":    uintKey("server.stream_queue", func(c *Config) *uint { return &c.Server.StreamQueue }),
	"cache.provider":         stringKey(func(c *Config) *string { return &c.Cache.Provider }),
	"cache.redis_addr":       stringKey(func(c *Config) *string { return &c.Cache.RedisAddr }),
	"llm.default_model":      stringKey(func(c *Config) *string { return &c.LLM.DefaultModel }),
	"llm.unavailable_answer": stringKey(func(c *Config) *string { return &c.LLM.UnavailableAnswer }),
	"llm.empty_answer":       stringKey(func(c *Config) *string { return &c.LLM.EmptyAnswer }),
	"events.kafka_brokers":   stringKey(func(c *Config) *string { return &c.Events.KafkaBrokers }),
	"events.kafka_topic":     stringKey(func(c *Config) *string { return &c.Events.KafkaTopic }),
	"client.api_target":      stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"client.username":        stringKey(func(c *Config) *string { return &c.Client.Username }),
}

// orderedKeys matches the TOML section layout.
var orderedKeys = []string{
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"server.listen",
	"server.stream_workers",
	"server.stream_queue",
	"cache.provider",
	"cache.redis_addr",
	"llm.default_model",
	"llm.unavailable_answer",
	"llm.empty_answer",
	"events.kafka_brokers",
	"events.kafka_topic",
	"client.api_target",
	"client.username",
}
