package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/feedback-insight/backend/internal/chat"
	"github.com/feedback-insight/backend/internal/feedback"
	"github.com/feedback-insight/backend/pkg/logger"
)

// WebSocketHandler streams chat replies over a socket so the dashboard
// can render answers word by word.
type WebSocketHandler struct {
	svc *chat.Service
}

// frameWriter is the outbound half of a websocket connection.
type frameWriter interface {
	WriteJSON(v interface{}) error
}

func NewWebSocketHandler(svc *chat.Service) *WebSocketHandler {
	return &WebSocketHandler{svc: svc}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string           `json:"type"`
			Message string           `json:"message"`
			Summary feedback.Summary `json:"summary"`
			History []chat.Message   `json:"history"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "chat" {
			continue
		}
		if strings.TrimSpace(msg.Message) == "" {
			h.sendError(c, "message is required")
			continue
		}

		if err := h.streamReply(c, msg.Message, msg.Summary, msg.History); err != nil {
			logger.Error("Failed to stream chat reply", zap.Error(err))
			h.sendError(c, "Failed to process message")
		}
	}
}

func (h *WebSocketHandler) streamReply(c frameWriter, message string, summary feedback.Summary, history []chat.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	reply, source := h.svc.Reply(ctx, message, summary, history)

	words := splitIntoWords(reply)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}

		if err := h.sendChunk(c, chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":   "complete",
		"source": source,
	})
}

func (h *WebSocketHandler) sendChunk(c frameWriter, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    "chunk",
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c frameWriter, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
