package chat

import (
	"fmt"
	"sort"
	"strings"

	prose "github.com/jdkato/prose/v2"

	"github.com/feedback-insight/backend/internal/feedback"
)

// Keyword groups routing a question to one canned answer. Checked in
// order; the first group with a token match wins.
var fallbackRoutes = []struct {
	keywords []string
	build    func(s feedback.Summary) string
}{
	{
		keywords: []string{"rating", "ratings", "score", "scores", "average"},
		build: func(s feedback.Summary) string {
			return fmt.Sprintf("The average rating is %.1f out of 5 across %d responses.", s.AverageRating, s.TotalResponses)
		},
	},
	{
		keywords: []string{"sentiment", "positive", "negative", "feel", "feeling", "mood"},
		build: func(s feedback.Summary) string {
			if len(s.SentimentDistribution) == 0 {
				return fmt.Sprintf("Overall positive sentiment is %d%%.", s.AvgSentimentPercentage)
			}
			parts := make([]string, 0, len(s.SentimentDistribution))
			for _, label := range sortedLabels(s.SentimentDistribution) {
				parts = append(parts, fmt.Sprintf("%s %.1f%%", label, s.SentimentDistribution[label]))
			}
			return "Sentiment distribution: " + strings.Join(parts, ", ") + "."
		},
	},
	{
		keywords: []string{"improve", "improvement", "improvements", "weakness", "weaknesses", "better", "fix"},
		build: func(s feedback.Summary) string {
			if len(s.ImprovementAreas) == 0 {
				return "No specific improvement areas were identified in this analysis."
			}
			return "Students suggested improving: " + strings.Join(s.ImprovementAreas, "; ") + "."
		},
	},
	{
		keywords: []string{"praise", "strength", "strengths", "good", "like", "liked", "best"},
		build: func(s feedback.Summary) string {
			if len(s.TopPraiseAreas) == 0 {
				return "No specific praise areas were identified in this analysis."
			}
			return "Students praised: " + strings.Join(s.TopPraiseAreas, "; ") + "."
		},
	},
	{
		keywords: []string{"recommend", "recommendation", "recommendations", "suggest", "suggestion", "action"},
		build: func(s feedback.Summary) string {
			if len(s.Recommendations) == 0 {
				return "No recommendations were generated for this instructor."
			}
			return "Recommendations: " + strings.Join(s.Recommendations, " ")
		},
	},
	{
		keywords: []string{"theme", "themes", "topic", "topics", "category", "categories"},
		build: func(s feedback.Summary) string {
			if len(s.DashboardCategories) == 0 {
				return fmt.Sprintf("The analysis found %d key themes.", s.KeyThemesCount)
			}
			parts := make([]string, 0, len(s.DashboardCategories))
			keys := make([]string, 0, len(s.DashboardCategories))
			for k := range s.DashboardCategories {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				parts = append(parts, fmt.Sprintf("%s (%d)", k, s.DashboardCategories[k]))
			}
			return fmt.Sprintf("The analysis found %d key themes: %s.", s.KeyThemesCount, strings.Join(parts, ", "))
		},
	},
	{
		keywords: []string{"response", "responses", "total", "count", "many", "students"},
		build: func(s feedback.Summary) string {
			return fmt.Sprintf("The analysis covers %d feedback responses.", s.TotalResponses)
		},
	},
}

// FallbackReply answers from the summary alone, used whenever the LLM
// path is unavailable or fails.
func FallbackReply(message string, s feedback.Summary) string {
	tokens := tokenize(message)

	for _, route := range fallbackRoutes {
		for _, kw := range route.keywords {
			if _, ok := tokens[kw]; ok {
				return route.build(s)
			}
		}
	}

	return fmt.Sprintf(
		"This instructor received %d responses with an average rating of %.1f/5 and %d%% positive sentiment. Ask about ratings, sentiment, themes, praise, improvements, or recommendations.",
		s.TotalResponses, s.AverageRating, s.AvgSentimentPercentage,
	)
}

// tokenize lowercases the message into a token set. prose handles
// punctuation splitting; plain field splitting is the degraded path.
func tokenize(message string) map[string]struct{} {
	set := make(map[string]struct{})

	doc, err := prose.NewDocument(message,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		for _, field := range strings.Fields(strings.ToLower(message)) {
			set[strings.Trim(field, ".,!?")] = struct{}{}
		}
		return set
	}

	for _, tok := range doc.Tokens() {
		set[strings.ToLower(tok.Text)] = struct{}{}
	}
	return set
}

func sortedLabels(m map[string]float64) []string {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}
