package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedback-insight/backend/internal/feedback"
	"github.com/feedback-insight/backend/internal/python"
	"github.com/feedback-insight/backend/pkg/logger"
)

// FeedbackHandler serves the upload/split and per-instructor analyze
// endpoints plus health and run history.
type FeedbackHandler struct {
	svc            *feedback.Service
	uploadDir      string
	maxUploadBytes int64
}

func NewFeedbackHandler(svc *feedback.Service, uploadDir string, maxUploadBytes int64) *FeedbackHandler {
	if maxUploadBytes == 0 {
		maxUploadBytes = 10 << 20
	}
	return &FeedbackHandler{
		svc:            svc,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload accepts one multipart CSV, persists it to the scratch
// directory and hands it to the splitting collaborator. Type and size
// are rejected before any file is written or process spawned.
func (h *FeedbackHandler) Upload(c *fiber.Ctx) error {
	if !h.svc.RuntimeAvailable() {
		return fail(c, fiber.StatusInternalServerError, python.ErrRuntimeUnavailable.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "No file uploaded")
	}

	if file.Size > h.maxUploadBytes {
		return fail(c, fiber.StatusBadRequest, fmt.Sprintf("File too large (max %d MB)", h.maxUploadBytes>>20))
	}
	if !isCSV(file.Filename, file.Header.Get("Content-Type")) {
		return fail(c, fiber.StatusBadRequest, "Only CSV files are supported")
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		logger.Error("Failed to create upload directory", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Failed to store uploaded file")
	}

	scratchPath := filepath.Join(h.uploadDir, uuid.New().String()+"_"+filepath.Base(file.Filename))
	if err := c.SaveFile(file, scratchPath); err != nil {
		logger.Error("Failed to save uploaded file", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Failed to store uploaded file")
	}

	instructors, err := h.svc.Split(c.Context(), scratchPath, file.Filename, file.Size)
	if err != nil {
		logger.Error("Upload split failed", zap.String("file", file.Filename), zap.Error(err))
		return failErr(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"instructors": instructors,
		"count":       len(instructors),
	})
}

// Analyze runs the analysis collaborator on one previously split file.
func (h *FeedbackHandler) Analyze(c *fiber.Ctx) error {
	var req struct {
		Filename string `json:"filename"`
	}

	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Filename) == "" {
		return fail(c, fiber.StatusBadRequest, "filename is required")
	}

	result, err := h.svc.Analyze(c.Context(), req.Filename)
	if err != nil {
		logger.Error("Analysis failed", zap.String("filename", req.Filename), zap.Error(err))
		return failErr(c, err)
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"filename":            req.Filename,
		"summary":             result.Summary,
		"individual_analysis": result.IndividualAnalysis,
	})
}

// Health reports whether the Python probe found a runtime; when it did
// not, upload and analyze consistently fail with the same diagnostic.
func (h *FeedbackHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":           "ok",
		"python_available": h.svc.RuntimeAvailable(),
		"python_version":   h.svc.RuntimeVersion(),
	})
}

// History returns recent upload and analysis runs.
func (h *FeedbackHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	uploads, analyses, chats, err := h.svc.History(limit)
	if err != nil {
		logger.Error("Failed to load run history", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Failed to load history")
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"uploads":  uploads,
		"analyses": analyses,
		"chats":    chats,
	})
}

func isCSV(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/csv") || strings.Contains(ct, "application/csv") ||
		strings.Contains(ct, "application/vnd.ms-excel")
}
