package api

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/xiaomiproject/aikefu/api/mcp"
	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/logger"
	"github.com/xiaomiproject/aikefu/pkg/resolve"
	"github.com/xiaomiproject/aikefu/pkg/user"
)

// Store is the persistence the API reads directly.
type Store interface {
	history.Store
	user.Store
}

// Server is the API server for asking questions and browsing history.
type Server struct {
	config   Config
	pipeline *resolve.Pipeline
	store    Store
	logger   *slog.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The pipeline and store are injected so they can be shared with other
// components, such as the MCP tools.
func NewServer(config Config, pipeline *resolve.Pipeline, store Store, log *slog.Logger) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("resolution pipeline is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	log = logger.OrNop(log)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		pipeline: pipeline,
		store:    store,
		logger:   log,
		app:      app,
	}

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${status} ${method} ${path} ${latency}\n",
		Output: slogWriter{log: log},
	}))

	app.Get("/ping", s.handlePing)

	auth := app.Group("/api/auth")
	auth.Post("/register", s.handleRegister)
	auth.Post("/login", s.handleLogin)

	protected := s.requireUser()

	chat := app.Group("/api/chat", protected...)
	chat.Post("/ask", s.handleAsk)
	chat.Post("/stream", s.handleStream)

	hist := app.Group("/api/history", protected...)
	hist.Get("/", s.handleListConversations)
	hist.Get("/:conversationId", s.handleGetConversation)
	hist.Delete("/:conversationId", s.handleDeleteConversation)

	app.Get("/api/models", append(protected, s.handleModels)...)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Pipeline: pipeline,
			History:  store,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", append(protected, adaptor.HTTPHandler(mcpServer.Handler()))...)
	}

	return s, nil
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// slogWriter routes fiber's access log lines into slog.
type slogWriter struct {
	log *slog.Logger
}

func (w slogWriter) Write(p []byte) (int, error) {
	w.log.Info("http request", "access", string(bytes.TrimSpace(p)))
	return len(p), nil
}
