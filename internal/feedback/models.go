package feedback

// Instructor identifies one per-instructor CSV produced by the
// splitting collaborator. ID is the filename minus the feedback
// suffix; Name is the display form with underscores restored to
// spaces.
type Instructor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

// Summary mirrors the aggregate block of the analyzer JSON. Fields the
// analyzer omits stay at their zero values; nothing here is validated
// beyond JSON parseability.
type Summary struct {
	TotalResponses         int                `json:"total_responses"`
	AverageRating          float64            `json:"average_rating"`
	AvgSentimentPercentage int                `json:"avg_sentiment_percentage"`
	KeyThemesCount         int                `json:"key_themes_count"`
	SentimentDistribution  map[string]float64 `json:"sentiment_distribution,omitempty"`
	CategoryDistribution   map[string]int     `json:"category_distribution,omitempty"`
	DashboardCategories    map[string]int     `json:"dashboard_categories,omitempty"`
	Recommendations        []string           `json:"recommendations,omitempty"`
	AIQuestionSummaries    []QuestionSummary  `json:"ai_question_summaries,omitempty"`
	TopPraiseAreas         []string           `json:"top_praise_areas,omitempty"`
	ImprovementAreas       []string           `json:"improvement_areas,omitempty"`
}

type QuestionSummary struct {
	Question  string `json:"question"`
	Sentiment string `json:"sentiment"`
	Summary   string `json:"summary"`
}

// RowAnalysis is one analyzed feedback row. Rating stays a string
// because it is passed through verbatim from the CSV ("4", "N/A").
type RowAnalysis struct {
	StudentID    string `json:"student_id"`
	Course       string `json:"course"`
	Instructor   string `json:"instructor"`
	Rating       string `json:"rating"`
	Sentiment    string `json:"sentiment"`
	Category     string `json:"category"`
	FeedbackText string `json:"feedback_text"`
}

// AnalysisResult is the analyzer's full output for one instructor file.
type AnalysisResult struct {
	Summary            Summary       `json:"summary"`
	IndividualAnalysis []RowAnalysis `json:"individual_analysis"`
}
