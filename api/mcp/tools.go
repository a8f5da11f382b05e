package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/resolve"
)

var (
	askToolName    = "ask"
	askDescription = "Ask the customer service assistant a question. Answers come from the answer cache, the curated knowledge base, or a language model, in that order. Pass conversationId to continue an earlier conversation."

	listConversationsToolName    = "list_conversations"
	listConversationsDescription = "List the caller's conversations, newest first, each represented by its opening question and answer."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to answer"`
	ConversationID string `json:"conversationId,omitempty" jsonschema:"conversation to continue; a new one is started when empty"`
	Model          string `json:"model,omitempty" jsonschema:"model to ask when no stored answer exists; the default model is used when empty or unknown"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversationId"`
	Source         string `json:"source"`
	Model          string `json:"model,omitempty"`
}

// ListConversationsInput is empty; the caller is taken from the request.
type ListConversationsInput struct{}

// Conversation summarises one conversation by its opening exchange.
type Conversation struct {
	ConversationID string `json:"conversationId"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	CreatedAt      string `json:"createdAt"`
}

// ListConversationsOutput represents the output of the list_conversations tool.
type ListConversationsOutput struct {
	Conversations []Conversation `json:"conversations"`
	Count         int            `json:"count"`
}

// tools implements the tool handlers for one authenticated user.
type tools struct {
	config Config
	userID string
}

func (t *tools) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	t.config.Logger.Debug("MCP ask request",
		"user_id", t.userID,
		"conversation_id", input.ConversationID,
	)

	answer, err := t.config.Pipeline.Resolve(ctx, resolve.Request{
		Question:       input.Question,
		ConversationID: input.ConversationID,
		UserID:         t.userID,
		ModelID:        input.Model,
	})
	if err != nil {
		return errorResult("Failed to answer question: %v", err), AskOutput{}, nil
	}

	output := AskOutput{
		Answer:         answer.Text,
		ConversationID: answer.ConversationID,
		Source:         answer.Source,
		Model:          answer.Model,
	}
	return t.jsonResult(output), output, nil
}

func (t *tools) handleListConversations(ctx context.Context, _ *mcp.CallToolRequest, _ ListConversationsInput) (*mcp.CallToolResult, ListConversationsOutput, error) {
	if t.userID == "" {
		return errorResult("Failed to list conversations: %v", resolve.ErrUnauthenticated), ListConversationsOutput{}, nil
	}

	records, err := t.config.History.ListHistoryByUser(ctx, t.userID)
	if err != nil {
		t.config.Logger.Error("failed to list history", "user_id", t.userID, "error", err)
		return errorResult("Failed to list conversations: %v", err), ListConversationsOutput{}, nil
	}

	output := ListConversationsOutput{Conversations: []Conversation{}}
	for _, r := range history.Conversations(records) {
		output.Conversations = append(output.Conversations, Conversation{
			ConversationID: r.ConversationID,
			Question:       r.Question,
			Answer:         r.Answer,
			CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		})
	}
	output.Count = len(output.Conversations)

	return t.jsonResult(output), output, nil
}

// jsonResult also carries the structured output as serialized JSON text
// for clients that only read text content.
func (t *tools) jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		t.config.Logger.Error("failed to marshal tool output", "error", err)
		return errorResult("Failed to serialize results: %v", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

func errorResult(format string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, err)},
		},
	}
}
