package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xiaomiproject/aikefu/pkg/cache"
	"github.com/xiaomiproject/aikefu/pkg/config"
	"github.com/xiaomiproject/aikefu/pkg/eventstream"
	"github.com/xiaomiproject/aikefu/pkg/eventstream/kafka"
	"github.com/xiaomiproject/aikefu/pkg/eventstream/nop"
	"github.com/xiaomiproject/aikefu/pkg/llm/provider"
)

// KeyResolver finds the API key for a named credential.
// *credentials.Manager satisfies it.
type KeyResolver interface {
	Resolve(credential, envVar string) (string, error)
}

// newRegistry builds one provider per configured model.
func newRegistry(cfg config.LLMConfig, keys KeyResolver, log *slog.Logger) (*provider.Registry, error) {
	providers := make(map[string]provider.Provider, len(cfg.Providers))

	for _, pc := range cfg.Providers {
		connect, err := parseTimeout(pc.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("model %q connect_timeout: %w", pc.Model, err)
		}
		read, err := parseTimeout(pc.ReadTimeout)
		if err != nil {
			return nil, fmt.Errorf("model %q read_timeout: %w", pc.Model, err)
		}

		var apiKey string
		if pc.Credential != "" || pc.APIKeyEnv != "" {
			apiKey, err = keys.Resolve(pc.Credential, pc.APIKeyEnv)
			if err != nil {
				return nil, fmt.Errorf("resolving key for model %q: %w", pc.Model, err)
			}
			if apiKey == "" {
				log.Warn("no API key found for model",
					"model", pc.Model,
					"credential", pc.Credential,
				)
			}
		}

		p, err := provider.New(provider.Config{
			Type:           pc.Type,
			Model:          pc.Model,
			Endpoint:       pc.Endpoint,
			APIKey:         apiKey,
			ConnectTimeout: connect,
			ReadTimeout:    read,
			RateLimitRPM:   int(pc.RateLimitRPM),
			Logger:         log,
		})
		if err != nil {
			return nil, err
		}

		if _, dup := providers[pc.Model]; dup {
			return nil, fmt.Errorf("%w: %q", provider.ErrDuplicateModel, pc.Model)
		}
		providers[pc.Model] = p
	}

	return provider.NewRegistry(cfg.DefaultModel, providers)
}

func parseTimeout(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// closer is satisfied by backends that hold connections.
type closer interface {
	Close() error
}

// newCache returns the configured answer cache.
func newCache(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (cache.Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "memory":
		log.Info("using in-memory answer cache")
		return cache.NewMemory(), nil
	case "redis":
		c, err := cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		log.Info("using redis answer cache", "addr", cfg.RedisAddr)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache provider: %q (available: memory, redis)", cfg.Provider)
	}
}

// newPublisher returns a Kafka publisher when brokers are configured and a
// nop publisher otherwise.
func newPublisher(cfg config.EventsConfig, log *slog.Logger) (eventstream.Publisher, error) {
	brokers := splitList(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   cfg.KafkaTopic,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	log.Info("publishing answer events to kafka",
		"brokers", strings.Join(brokers, ","),
		"topic", cfg.KafkaTopic,
	)
	return p, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
