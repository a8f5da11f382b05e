// Package provider routes questions to upstream LLM backends.
//
// Each backend client implements Provider. The Registry maps model
// identifiers to providers and always resolves to something: an unknown
// or empty model id falls back to the configured default.
package provider

import (
	"context"

	"github.com/xiaomiproject/aikefu/pkg/llm"
)

// Provider is one upstream model reachable through a client implementation.
type Provider interface {
	// Name returns the client type (e.g. "openai-compatible", "openai", "ollama").
	Name() string

	// Model returns the model identifier sent upstream.
	Model() string

	// Complete sends question as a single user turn and returns the first
	// choice's content. It returns llm.ErrEmptyCompletion when there is none.
	Complete(ctx context.Context, question string) (string, error)

	// Stream opens a streaming completion. Each chunk holds one or more
	// "data:"-prefixed delta sub-messages.
	Stream(ctx context.Context, question string) (llm.ChunkStream, error)
}
