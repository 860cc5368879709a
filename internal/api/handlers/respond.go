package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/feedback-insight/backend/internal/feedback"
)

// fail writes the error envelope shared by every endpoint.
func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// failErr maps a service error onto the endpoint taxonomy: invalid
// input and analyzer rejections are client errors, a missing instructor
// file is not-found, anything else (runtime, script, collaborator
// failure) is a server error.
func failErr(c *fiber.Ctx, err error) error {
	var rejected *feedback.RejectedError

	switch {
	case errors.Is(err, feedback.ErrNoInstructorData),
		errors.Is(err, feedback.ErrInvalidFilename):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &rejected):
		return fail(c, fiber.StatusBadRequest, rejected.Message)
	case errors.Is(err, feedback.ErrFileNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	default:
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
}
