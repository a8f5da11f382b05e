// Package mcp exposes the answer pipeline as MCP (Model Context Protocol) tools.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/logger"
	"github.com/xiaomiproject/aikefu/pkg/resolve"
	"github.com/xiaomiproject/aikefu/pkg/utils"
)

// UserHeader names the request header holding the authenticated user id.
// It is set by the API's auth middleware before requests reach this handler.
const UserHeader = "X-Aikefu-User-Id"

type Config struct {
	// Pipeline answers questions for the ask tool.
	Pipeline *resolve.Pipeline

	// History backs the list_conversations tool.
	History history.Store

	Logger *slog.Logger
}

type Server struct {
	config  Config
	handler *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the ask and list_conversations tools.
func NewServer(c Config) (*Server, error) {
	if c.Pipeline == nil {
		return nil, errors.New("resolution pipeline is required")
	}
	if c.History == nil {
		return nil, errors.New("history store is required")
	}
	c.Logger = logger.OrNop(c.Logger)

	s := &Server{config: c}

	// Tools act on behalf of the caller, so every request gets a server
	// bound to its user. Stateless mode keeps no session between requests.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server {
			return s.serverFor(r.Header.Get(UserHeader))
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// serverFor builds an MCP server whose tools act as userID.
func (s *Server) serverFor(userID string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "aikefu",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	t := &tools{config: s.config, userID: userID}

	mcp.AddTool(server, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, t.handleAsk)

	mcp.AddTool(server, &mcp.Tool{
		Name:        listConversationsToolName,
		Description: listConversationsDescription,
	}, t.handleListConversations)

	return server
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
