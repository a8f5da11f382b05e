package credentials

import "time"

// Provider is a hosted model vendor whose API key can be stored.
type Provider struct {
	// Name is the credential name used in config and on the command line.
	Name string

	// Title is the display name.
	Title string

	// EnvVar is the conventional environment variable for the key.
	EnvVar string
}

var providers = []Provider{
	{Name: "dashscope", Title: "DashScope (Qwen)", EnvVar: "DASHSCOPE_API_KEY"},
	{Name: "deepseek", Title: "DeepSeek", EnvVar: "DEEPSEEK_API_KEY"},
	{Name: "openai", Title: "OpenAI", EnvVar: "OPENAI_API_KEY"},
}

// keyFile is the on-disk layout of credentials.toml.
type keyFile struct {
	Version int                  `toml:"version"`
	Keys    map[string]storedKey `toml:"keys"`
}

type storedKey struct {
	APIKey    string    `toml:"api_key"`
	UpdatedAt time.Time `toml:"updated_at"`
}

// Entry describes one stored key without revealing it.
type Entry struct {
	Provider  Provider
	Masked    string
	UpdatedAt time.Time

	// EnvOverride is set when the provider's environment variable is
	// non-empty, so the stored key is currently shadowed.
	EnvOverride bool
}
