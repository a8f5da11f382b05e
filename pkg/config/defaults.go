package config

const (
	defaultStorageDriver = "memory"
	defaultListen        = ":8080"
	defaultStreamWorkers = 20
	defaultStreamQueue   = 100
	defaultCacheProvider = "memory"
	defaultKafkaTopic    = "aikefu.answers"
	defaultAPITarget     = "http://localhost:8080"

	defaultModel = "deepseek-chat"

	// DefaultUnavailableAnswer replaces a failed synchronous completion.
	DefaultUnavailableAnswer = "Sorry, the AI service is temporarily unavailable. Please try again later."

	// DefaultEmptyAnswer replaces a completion that carried no choices.
	DefaultEmptyAnswer = "Sorry, the model did not return a valid answer."

	defaultConnectTimeout = "10s"
	defaultReadTimeout    = "100s"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Server: ServerConfig{
			Listen:        defaultListen,
			StreamWorkers: defaultStreamWorkers,
			StreamQueue:   defaultStreamQueue,
		},
		Cache: CacheConfig{
			Provider: defaultCacheProvider,
		},
		LLM: LLMConfig{
			DefaultModel:      defaultModel,
			UnavailableAnswer: DefaultUnavailableAnswer,
			EmptyAnswer:       DefaultEmptyAnswer,
			Providers:         DefaultProviders(),
		},
		Events: EventsConfig{
			KafkaTopic: defaultKafkaTopic,
		},
		Client: ClientConfig{
			APITarget: defaultAPITarget,
		},
	}
}

// DefaultProviders registers DeepSeek and DashScope's OpenAI-compatible mode.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Model:          "deepseek-chat",
			Type:           "openai-compatible",
			Endpoint:       "https://api.deepseek.com/chat/completions",
			Credential:     "deepseek",
			ConnectTimeout: defaultConnectTimeout,
			ReadTimeout:    defaultReadTimeout,
		},
		{
			Model:          "qwen-plus",
			Type:           "openai-compatible",
			Endpoint:       "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
			Credential:     "dashscope",
			ConnectTimeout: defaultConnectTimeout,
			ReadTimeout:    defaultReadTimeout,
		},
	}
}
