// Package openai is a provider client for the OpenAI Chat Completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/xiaomiproject/aikefu/pkg/llm"
	"github.com/xiaomiproject/aikefu/pkg/logger"
)

// Name is the provider type reported by Client.Name.
const Name = "openai"

type Options struct {
	// BaseURL overrides the API base (e.g. "https://api.openai.com/v1").
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client

	// ReadTimeout bounds a whole synchronous completion.
	ReadTimeout time.Duration

	Logger *slog.Logger
}

// Client wraps go-openai for one model.
type Client struct {
	client      *goopenai.Client
	model       string
	readTimeout time.Duration
	logger      *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("api key is required")
	}

	cfg := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	return &Client{
		client:      goopenai.NewClientWithConfig(cfg),
		model:       opts.Model,
		readTimeout: opts.ReadTimeout,
		logger:      logger.OrNop(opts.Logger),
	}, nil
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.model }

func (c *Client) request(question string, stream bool) goopenai.ChatCompletionRequest {
	return goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: question},
		},
		Stream: stream,
	}
}

func (c *Client) Complete(ctx context.Context, question string) (string, error) {
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.request(question, false))
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream re-frames each streamed delta as a "data:" chunk.
func (c *Client) Stream(ctx context.Context, question string) (llm.ChunkStream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(question, true))
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	return &deltaStream{stream: stream, logger: c.logger}, nil
}

type deltaStream struct {
	stream *goopenai.ChatCompletionStream
	logger *slog.Logger
}

// Next returns io.EOF unchanged from Recv at end of stream. A "data:" line
// that does not decode as a chunk is logged and skipped.
func (s *deltaStream) Next() ([]byte, error) {
	var (
		resp goopenai.ChatCompletionStreamResponse
		err  error
	)
	for {
		resp, err = s.stream.Recv()
		if err == nil {
			break
		}
		if !isDecodeError(err) {
			return nil, err
		}
		s.logger.Debug("skipping malformed openai chunk", "error", err)
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding delta: %w", err)
	}

	return llm.FrameData(payload), nil
}

func isDecodeError(err error) bool {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func (s *deltaStream) Close() error {
	return s.stream.Close()
}
