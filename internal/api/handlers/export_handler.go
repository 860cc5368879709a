package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/feedback-insight/backend/internal/export"
	"github.com/feedback-insight/backend/internal/feedback"
	"github.com/feedback-insight/backend/pkg/logger"
)

// ExportHandler renders client-supplied analysis results as
// downloadable report and CSV attachments. Sparse summaries are fine;
// every missing field falls back to a zero value.
type ExportHandler struct{}

func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

type exportRequest struct {
	Instructor         string                 `json:"instructor"`
	Summary            feedback.Summary       `json:"summary"`
	IndividualAnalysis []feedback.RowAnalysis `json:"individual_analysis"`
}

func (h *ExportHandler) DownloadReport(c *fiber.Ctx) error {
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	report := export.BuildReport(req.Instructor, req.Summary)

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, attachment(export.ReportFilename(req.Instructor)))
	return c.SendString(report)
}

func (h *ExportHandler) DownloadCSV(c *fiber.Ctx) error {
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	data, err := export.BuildCSV(req.Instructor, req.Summary, req.IndividualAnalysis)
	if err != nil {
		logger.Error("CSV export failed", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Failed to build CSV export")
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, attachment(export.CSVFilename(req.Instructor)))
	return c.Send(data)
}

func attachment(filename string) string {
	// quotes stripped so the filename cannot break out of the header
	return fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(filename, `"`, ""))
}
