package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/feedback-insight/backend/internal/feedback"
)

// BuildCSV renders the per-row analysis as CSV, followed by a short
// summary block. Works on empty input: the header row is always
// present and numeric summary fields default to zero.
func BuildCSV(instructor string, s feedback.Summary, rows []feedback.RowAnalysis) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Student ID", "Course", "Instructor", "Rating", "Sentiment", "Category", "Feedback"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.StudentID,
			row.Course,
			row.Instructor,
			row.Rating,
			row.Sentiment,
			row.Category,
			row.FeedbackText,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	summaryRows := [][]string{
		{""},
		{"Summary", ""},
		{"Total Responses", fmt.Sprintf("%d", s.TotalResponses)},
		{"Average Rating", fmt.Sprintf("%.1f", s.AverageRating)},
		{"Positive Sentiment", fmt.Sprintf("%d%%", s.AvgSentimentPercentage)},
		{"Key Themes", fmt.Sprintf("%d", s.KeyThemesCount)},
	}
	for _, record := range summaryRows {
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}

// CSVFilename names the attachment after the instructor.
func CSVFilename(instructor string) string {
	return safeName(instructor) + "_feedback_data.csv"
}
