// Package openaicompat is a client for OpenAI-compatible chat completion
// endpoints such as DeepSeek and DashScope's compatible mode.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/xiaomiproject/aikefu/pkg/llm"
	"github.com/xiaomiproject/aikefu/pkg/logger"
	"github.com/xiaomiproject/aikefu/pkg/sse"
)

const (
	// Name is the provider type reported by Client.Name.
	Name = "openai-compatible"

	maxErrorBody = 4 * 1024
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

type Options struct {
	// Endpoint is the full chat completions URL.
	Endpoint string
	APIKey   string
	Model    string

	HTTPClient *http.Client

	// ReadTimeout bounds a whole synchronous completion.
	ReadTimeout time.Duration

	Logger *slog.Logger
}

// Client talks to one model behind an OpenAI-compatible endpoint.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	httpClient  *http.Client
	readTimeout time.Duration
	logger      *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		endpoint:    opts.Endpoint,
		apiKey:      opts.APIKey,
		model:       opts.Model,
		httpClient:  opts.HTTPClient,
		readTimeout: opts.ReadTimeout,
		logger:      logger.OrNop(opts.Logger),
	}, nil
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.model }

func (c *Client) Complete(ctx context.Context, question string) (string, error) {
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}

	resp, err := c.post(ctx, llm.NewQuestionRequest(c.model, question, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out llm.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}

	return out.Answer()
}

// Stream opens a streaming completion. Each chunk is the raw bytes of one
// upstream SSE event.
func (c *Client) Stream(ctx context.Context, question string) (llm.ChunkStream, error) {
	resp, err := c.post(ctx, llm.NewQuestionRequest(c.model, question, true))
	if err != nil {
		return nil, err
	}

	return &eventStream{body: resp.Body, reader: sse.NewReader(resp.Body)}, nil
}

func (c *Client) post(ctx context.Context, req *llm.ChatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", c.endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("upstream error", "status", resp.StatusCode, "stream", req.Stream)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	return resp, nil
}

type eventStream struct {
	body   io.ReadCloser
	reader *sse.Reader
}

func (s *eventStream) Next() ([]byte, error) {
	ev, err := s.reader.Next()
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, io.EOF
	}
	return ev.Raw, nil
}

func (s *eventStream) Close() error {
	return s.body.Close()
}
