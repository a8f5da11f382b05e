// Package client talks to a running aikefu API server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/sse"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// AskRequest is one question.
type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId,omitempty"`
	Model          string `json:"model,omitempty"`
}

// Answer is the server's reply to a synchronous question.
type Answer struct {
	Text           string `json:"answer"`
	ConversationID string `json:"conversationId"`
	Source         string `json:"source"`
	Model          string `json:"model,omitempty"`
}

// Models lists the models the server can ask.
type Models struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

// User is the public view of an account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Client is an aikefu API client authenticating with HTTP basic auth.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// New returns a client for the server at baseURL.
func New(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
	}
}

// Register creates an account. It needs no credentials.
func (c *Client) Register(ctx context.Context, username, password string) (*User, error) {
	u := &User{}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, u)
	return u, err
}

// Login checks the client's credentials and records the login.
func (c *Client) Login(ctx context.Context) (*User, error) {
	u := &User{}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": c.username,
		"password": c.password,
	}, u)
	return u, err
}

// Ask resolves a question and waits for the whole answer.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	a := &Answer{}
	if err := c.do(ctx, http.MethodPost, "/api/chat/ask", req, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Stream resolves a question over server-sent events, calling onFragment
// for each piece of the answer as it arrives. It returns the conversation
// id once the server reports the answer recorded.
func (c *Client) Stream(ctx context.Context, req AskRequest, onFragment func(string)) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	reader := sse.NewReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			return "", fmt.Errorf("reading stream: %w", err)
		}
		if ev == nil {
			return "", errors.New("stream ended without completing")
		}

		switch ev.Type {
		case "fragment":
			var data struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal([]byte(ev.Data), &data); err != nil {
				return "", fmt.Errorf("decoding fragment: %w", err)
			}
			if onFragment != nil {
				onFragment(data.Text)
			}
		case "done":
			var data struct {
				ConversationID string `json:"conversationId"`
			}
			if err := json.Unmarshal([]byte(ev.Data), &data); err != nil {
				return "", fmt.Errorf("decoding done event: %w", err)
			}
			return data.ConversationID, nil
		case "error":
			var data struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal([]byte(ev.Data), &data)
			return "", fmt.Errorf("answer failed: %s", data.Error)
		}
	}
}

// Conversations lists the caller's conversations, newest first.
func (c *Client) Conversations(ctx context.Context) ([]*history.Record, error) {
	var records []*history.Record
	err := c.do(ctx, http.MethodGet, "/api/history", nil, &records)
	return records, err
}

// Conversation returns every record of a conversation, oldest first.
func (c *Client) Conversation(ctx context.Context, id string) ([]*history.Record, error) {
	var records []*history.Record
	err := c.do(ctx, http.MethodGet, "/api/history/"+url.PathEscape(id), nil, &records)
	return records, err
}

// DeleteConversation removes a conversation owned by the caller.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/history/"+url.PathEscape(id), nil, nil)
}

// Models lists the models the server can ask.
func (c *Client) Models(ctx context.Context) (*Models, error) {
	m := &Models{}
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// do sends in as JSON and decodes the response into out, when given.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	se := &StatusError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err == nil {
		se.Message = body.Error
	}
	return se
}
