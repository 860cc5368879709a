package models

import "time"

type UploadRun struct {
	ID              string    `json:"id"`
	OriginalName    string    `json:"original_name"`
	SizeBytes       int64     `json:"size_bytes"`
	InstructorCount int       `json:"instructor_count"`
	Status          string    `json:"status"`
	Error           string    `json:"error,omitempty"`
	LatencyMS       int       `json:"latency_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

type AnalysisRun struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	TotalResponses int       `json:"total_responses"`
	AverageRating  float64   `json:"average_rating"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	LatencyMS      int       `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

type ChatExchange struct {
	ID        int       `json:"id"`
	Message   string    `json:"message"`
	Reply     string    `json:"reply"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)
