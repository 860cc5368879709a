package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/feedback-insight/backend/internal/storage/models"
	"github.com/feedback-insight/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS upload_runs (
		id TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		instructor_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_upload_runs_created ON upload_runs(created_at);

	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		total_responses INTEGER,
		average_rating REAL,
		status TEXT NOT NULL,
		error TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analysis_runs_filename ON analysis_runs(filename);
	CREATE INDEX IF NOT EXISTS idx_analysis_runs_created ON analysis_runs(created_at);

	CREATE TABLE IF NOT EXISTS chat_exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message TEXT NOT NULL,
		reply TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_created ON chat_exchanges(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertUploadRun(run *models.UploadRun) error {
	query := `
		INSERT INTO upload_runs (id, original_name, size_bytes, instructor_count, status, error, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.OriginalName,
		run.SizeBytes,
		run.InstructorCount,
		run.Status,
		run.Error,
		run.LatencyMS,
		run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload run: %w", err)
	}

	logger.Debug("Upload run recorded",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("instructors", run.InstructorCount),
	)
	return nil
}

func (c *Client) InsertAnalysisRun(run *models.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (id, filename, total_responses, average_rating, status, error, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.Filename,
		run.TotalResponses,
		run.AverageRating,
		run.Status,
		run.Error,
		run.LatencyMS,
		run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}

	logger.Debug("Analysis run recorded",
		zap.String("run_id", run.ID),
		zap.String("filename", run.Filename),
		zap.String("status", run.Status),
	)
	return nil
}

func (c *Client) RecentUploadRuns(limit int) ([]models.UploadRun, error) {
	query := `
		SELECT id, original_name, size_bytes, instructor_count, status, COALESCE(error, ''), COALESCE(latency_ms, 0), created_at
		FROM upload_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload runs: %w", err)
	}
	defer rows.Close()

	var runs []models.UploadRun
	for rows.Next() {
		var r models.UploadRun
		var createdAt int64

		err := rows.Scan(&r.ID, &r.OriginalName, &r.SizeBytes, &r.InstructorCount, &r.Status, &r.Error, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

func (c *Client) RecentAnalysisRuns(limit int) ([]models.AnalysisRun, error) {
	query := `
		SELECT id, filename, COALESCE(total_responses, 0), COALESCE(average_rating, 0), status, COALESCE(error, ''), COALESCE(latency_ms, 0), created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []models.AnalysisRun
	for rows.Next() {
		var r models.AnalysisRun
		var createdAt int64

		err := rows.Scan(&r.ID, &r.Filename, &r.TotalResponses, &r.AverageRating, &r.Status, &r.Error, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

func (c *Client) InsertChatExchange(message, reply, source string) error {
	query := `INSERT INTO chat_exchanges (message, reply, source, created_at) VALUES (?, ?, ?, ?)`

	_, err := c.db.Exec(query, message, reply, source, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert chat exchange: %w", err)
	}

	return nil
}

func (c *Client) RecentChatExchanges(limit int) ([]models.ChatExchange, error) {
	query := `
		SELECT id, message, reply, source, created_at
		FROM chat_exchanges
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []models.ChatExchange
	for rows.Next() {
		var e models.ChatExchange
		var createdAt int64

		err := rows.Scan(&e.ID, &e.Message, &e.Reply, &e.Source, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		e.CreatedAt = time.Unix(createdAt, 0)
		exchanges = append(exchanges, e)
	}

	return exchanges, rows.Err()
}
