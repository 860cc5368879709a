package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/feedback-insight/backend/internal/feedback"
)

// BuildReport renders a summary as a plain-text report. Absent summary
// fields render as zeros or empty sections; sparse input never fails.
func BuildReport(instructor string, s feedback.Summary) string {
	var b strings.Builder

	b.WriteString("STUDENT FEEDBACK ANALYSIS REPORT\n")
	b.WriteString(strings.Repeat("=", 48) + "\n\n")
	fmt.Fprintf(&b, "Instructor: %s\n", displayName(instructor))
	fmt.Fprintf(&b, "Generated:  %s\n\n", time.Now().Format("2006-01-02 15:04"))

	b.WriteString("OVERVIEW\n")
	b.WriteString(strings.Repeat("-", 48) + "\n")
	fmt.Fprintf(&b, "Total Responses:    %d\n", s.TotalResponses)
	fmt.Fprintf(&b, "Average Rating:     %.1f/5\n", s.AverageRating)
	fmt.Fprintf(&b, "Positive Sentiment: %d%%\n", s.AvgSentimentPercentage)
	fmt.Fprintf(&b, "Key Themes:         %d\n\n", s.KeyThemesCount)

	if len(s.SentimentDistribution) > 0 {
		b.WriteString("SENTIMENT DISTRIBUTION\n")
		b.WriteString(strings.Repeat("-", 48) + "\n")
		for _, label := range sortedKeys(s.SentimentDistribution) {
			fmt.Fprintf(&b, "%-10s %.1f%%\n", label+":", s.SentimentDistribution[label])
		}
		b.WriteString("\n")
	}

	writeList(&b, "TOP PRAISE AREAS", s.TopPraiseAreas)
	writeList(&b, "AREAS FOR IMPROVEMENT", s.ImprovementAreas)
	writeList(&b, "RECOMMENDATIONS", s.Recommendations)

	if len(s.AIQuestionSummaries) > 0 {
		b.WriteString("QUESTION SUMMARIES\n")
		b.WriteString(strings.Repeat("-", 48) + "\n")
		for _, qs := range s.AIQuestionSummaries {
			fmt.Fprintf(&b, "Q: %s [%s]\n   %s\n", qs.Question, qs.Sentiment, qs.Summary)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ReportFilename names the attachment after the instructor, spaces
// replaced by underscores.
func ReportFilename(instructor string) string {
	return safeName(instructor) + "_feedback_report.txt"
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", 48) + "\n")
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
	b.WriteString("\n")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func displayName(instructor string) string {
	if instructor == "" {
		return "Unknown"
	}
	return strings.ReplaceAll(instructor, "_", " ")
}

func safeName(instructor string) string {
	if instructor == "" {
		return "instructor"
	}
	return strings.ReplaceAll(strings.TrimSpace(instructor), " ", "_")
}
