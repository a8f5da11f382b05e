package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/xiaomiproject/aikefu/pkg/llm/provider/ollama"
	"github.com/xiaomiproject/aikefu/pkg/llm/provider/openai"
	"github.com/xiaomiproject/aikefu/pkg/llm/provider/openaicompat"
	"github.com/xiaomiproject/aikefu/pkg/logger"
)

// Supported provider type constants
const (
	OpenAICompatible = "openai-compatible"
	OpenAI           = "openai"
	Ollama           = "ollama"

	// DeepSeek and DashScope are aliases of OpenAICompatible.
	DeepSeek  = "deepseek"
	DashScope = "dashscope"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 100 * time.Second
)

// SupportedTypes returns the list of all supported provider type names.
func SupportedTypes() []string {
	return []string{OpenAICompatible, OpenAI, Ollama, DeepSeek, DashScope}
}

// Config describes one provider to construct.
type Config struct {
	Type     string
	Model    string
	Endpoint string
	APIKey   string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	RateLimitRPM int

	Logger *slog.Logger
}

// New creates a Provider for cfg.Type.
func New(cfg Config) (Provider, error) {
	if cfg.Model == "" {
		return nil, errors.New("provider model must not be empty")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	log := logger.OrNop(cfg.Logger).With("model", cfg.Model, "provider", cfg.Type)
	client := NewHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout)

	var (
		p   Provider
		err error
	)

	switch cfg.Type {
	case OpenAICompatible, DeepSeek, DashScope:
		p, err = openaicompat.New(openaicompat.Options{
			Endpoint:    cfg.Endpoint,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			HTTPClient:  client,
			ReadTimeout: cfg.ReadTimeout,
			Logger:      log,
		})
	case OpenAI:
		p, err = openai.New(openai.Options{
			BaseURL:     cfg.Endpoint,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			HTTPClient:  client,
			ReadTimeout: cfg.ReadTimeout,
			Logger:      log,
		})
	case Ollama:
		p, err = ollama.New(ollama.Options{
			BaseURL:     cfg.Endpoint,
			Model:       cfg.Model,
			HTTPClient:  client,
			ReadTimeout: cfg.ReadTimeout,
			Logger:      log,
		})
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", cfg.Type, SupportedTypes())
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s provider for %q: %w", cfg.Type, cfg.Model, err)
	}

	return WithRateLimit(p, cfg.RateLimitRPM), nil
}

// NewHTTPClient returns a client with bounded connect and response-header
// timeouts. There is no overall timeout so long streams are not cut off.
func NewHTTPClient(connect, read time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connect,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   connect,
			ResponseHeaderTimeout: read,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   10,
		},
	}
}
