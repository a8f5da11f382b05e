// Package ollama is a provider client for a local Ollama server.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xiaomiproject/aikefu/pkg/llm"
	"github.com/xiaomiproject/aikefu/pkg/logger"
)

const (
	// Name is the provider type reported by Client.Name.
	Name = "ollama"

	// DefaultBaseURL is the local Ollama server.
	DefaultBaseURL = "http://localhost:11434"
)

type Options struct {
	BaseURL string
	Model   string

	HTTPClient *http.Client

	// ReadTimeout bounds a whole synchronous completion.
	ReadTimeout time.Duration

	Logger *slog.Logger
}

// Client talks to /api/chat on an Ollama server.
type Client struct {
	chatURL     string
	model       string
	httpClient  *http.Client
	readTimeout time.Duration
	logger      *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		chatURL:     strings.TrimRight(opts.BaseURL, "/") + "/api/chat",
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

	resp, err := c.post(ctx, question, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	if out.Message.Content == "" {
		return "", llm.ErrEmptyCompletion
	}

	return out.Message.Content, nil
}

// Stream translates the NDJSON stream into "data:" delta chunks.
// Malformed lines are skipped; a line with done=true ends the stream.
func (c *Client) Stream(ctx context.Context, question string) (llm.ChunkStream, error) {
	resp, err := c.post(ctx, question, true)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &lineStream{
		body:    resp.Body,
		scanner: scanner,
		model:   c.model,
		logger:  c.logger,
	}, nil
}

func (c *Client) post(ctx context.Context, question string, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: llm.RoleUser, Content: question}},
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return resp, nil
}

type lineStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	model   string
	logger  *slog.Logger
	done    bool
}

func (s *lineStream) Next() ([]byte, error) {
	for !s.done && s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.logger.Debug("skipping malformed ollama line", "error", err)
			continue
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("ollama: %s", chunk.Error)
		}

		s.done = chunk.Done
		if chunk.Message.Content == "" {
			continue
		}

		return llm.FrameDelta(s.model, chunk.Message.Content)
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

func (s *lineStream) Close() error {
	return s.body.Close()
}
