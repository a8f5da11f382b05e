package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/resolve"
)

// askRequest is the body of ask and stream requests.
type askRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
	Model          string `json:"model"`
}

func (r askRequest) toResolve(userID string) resolve.Request {
	return resolve.Request{
		Question:       r.Question,
		ConversationID: r.ConversationID,
		UserID:         userID,
		ModelID:        r.Model,
	}
}

// modelsResponse lists the registered models.
type modelsResponse struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleAsk resolves one question and returns the whole answer.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	var body askRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	answer, err := s.pipeline.Resolve(c.UserContext(), body.toResolve(userID(c)))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(answer)
}

// handleListConversations returns one entry per conversation of the caller,
// newest first, represented by its opening question.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	records, err := s.store.ListHistoryByUser(c.UserContext(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(history.Conversations(records))
}

// handleGetConversation returns every record of a conversation, oldest first.
// A conversation belongs to whoever opened it.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	records, err := s.store.ListHistoryByConversation(c.UserContext(), c.Params("conversationId"))
	if err != nil {
		return s.fail(c, err)
	}
	if len(records) == 0 {
		return s.fail(c, history.ErrNotFound)
	}
	if records[0].UserID != userID(c) {
		return s.fail(c, history.ErrPermissionDenied)
	}
	return c.JSON(records)
}

// handleDeleteConversation removes a conversation owned by the caller.
func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	id := c.Params("conversationId")
	n, err := s.store.DeleteConversation(c.UserContext(), id, userID(c))
	if err != nil {
		return s.fail(c, err)
	}

	s.logger.Info("conversation deleted",
		"conversation_id", id,
		"user_id", userID(c),
		"records", n,
	)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleModels lists the models the registry can serve.
func (s *Server) handleModels(c *fiber.Ctx) error {
	models, def := s.pipeline.Models()
	return c.JSON(modelsResponse{Models: models, Default: def})
}
