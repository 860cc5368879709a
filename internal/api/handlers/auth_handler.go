package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/feedback-insight/backend/pkg/logger"
)

// AuthHandler checks the dashboard login against the configured admin
// credentials. Single user, no session store; the client keeps its own
// login state.
type AuthHandler struct {
	username string
	password string
}

func NewAuthHandler(username, password string) *AuthHandler {
	return &AuthHandler{username: username, password: password}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) == 1
	if !userOK || !passOK {
		logger.Warn("Login rejected", zap.String("username", req.Username))
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"username": h.username,
			"role":     "admin",
		},
	})
}
