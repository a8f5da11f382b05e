package api

import (
	"bufio"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/xiaomiproject/aikefu/pkg/resolve"
	"github.com/xiaomiproject/aikefu/pkg/sse"
)

type fragmentData struct {
	Text string `json:"text"`
}

type doneData struct {
	ConversationID string `json:"conversationId"`
}

// handleStream resolves a question and relays the answer as server-sent
// events. A client that disconnects mid-stream stops receiving events but
// the answer is still recorded.
func (s *Server) handleStream(c *fiber.Ctx) error {
	var body askRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	stream, err := s.pipeline.ResolveStream(c.UserContext(), body.toResolve(userID(c)))
	if err != nil {
		return s.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
	c.Set("X-Conversation-Id", stream.ConversationID())

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer stream.Close()
		for ev := range stream.Events() {
			if err := writeStreamEvent(w, ev); err != nil {
				s.logger.Debug("stream client went away",
					"conversation_id", stream.ConversationID(),
					"error", err,
				)
				return
			}
		}
	})
	return nil
}

func writeStreamEvent(w *bufio.Writer, ev resolve.Event) error {
	var payload any
	switch ev.Type {
	case resolve.EventFragment:
		payload = fragmentData{Text: ev.Text}
	case resolve.EventDone:
		payload = doneData{ConversationID: ev.ConversationID}
	default:
		msg := "stream failed"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		payload = ErrorResponse{Error: msg}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := sse.WriteEvent(w, sse.Event{Type: string(ev.Type), Data: string(data)}); err != nil {
		return err
	}
	return w.Flush()
}
