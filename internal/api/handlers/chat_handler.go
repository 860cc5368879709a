package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/feedback-insight/backend/internal/chat"
	"github.com/feedback-insight/backend/internal/feedback"
)

// ChatHandler answers questions about an analysis result, preferring
// the LLM and degrading to keyword answers when it cannot help.
type ChatHandler struct {
	svc *chat.Service
}

func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type chatRequest struct {
	Message string           `json:"message"`
	Summary feedback.Summary `json:"summary"`
	History []chat.Message   `json:"history"`
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fail(c, fiber.StatusBadRequest, "message is required")
	}

	reply, source := h.svc.Reply(c.Context(), req.Message, req.Summary, req.History)

	return c.JSON(fiber.Map{
		"success": true,
		"reply":   reply,
		"source":  source,
	})
}
