package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/xiaomiproject/aikefu/pkg/llm"
)

// rateLimited wraps a Provider with a requests-per-minute token bucket.
// Both completion kinds draw from the same bucket.
type rateLimited struct {
	Provider
	limiter *rate.Limiter
}

// WithRateLimit limits p to rpm requests per minute. rpm of 0 returns p unchanged.
func WithRateLimit(p Provider, rpm int) Provider {
	if rpm <= 0 {
		return p
	}
	return &rateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}
}

func (r *rateLimited) Complete(ctx context.Context, question string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.Provider.Complete(ctx, question)
}

func (r *rateLimited) Stream(ctx context.Context, question string) (llm.ChunkStream, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.Stream(ctx, question)
}
