package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	rediscache "github.com/feedback-insight/backend/internal/cache/redis"
	"github.com/feedback-insight/backend/internal/metrics"
	"github.com/feedback-insight/backend/internal/python"
	"github.com/feedback-insight/backend/internal/storage/models"
	"github.com/feedback-insight/backend/internal/storage/sqlite"
	"github.com/feedback-insight/backend/pkg/logger"
	"github.com/feedback-insight/backend/pkg/utils"
)

// FeedbackSuffix is the fixed suffix the splitting collaborator appends
// to every per-instructor file.
const FeedbackSuffix = "_feedback.csv"

// Runner abstracts the Python script runner so tests can stub the
// collaborators.
type Runner interface {
	Run(ctx context.Context, script string, args ...string) (string, error)
	Available() bool
	RuntimeVersion() string
}

type Config struct {
	SplitScript   string
	AnalyzeScript string
	InstructorDir string
	CacheTTL      time.Duration
}

// Service orchestrates the two Python collaborators: the splitter that
// partitions an uploaded CSV by instructor and the analyzer that turns
// one instructor file into an AnalysisResult. History (sqlite) and
// cache (redis) are optional; a nil client disables the concern.
type Service struct {
	runner Runner
	db     *sqlite.Client
	cache  *rediscache.Client
	cfg    Config
}

func NewService(runner Runner, db *sqlite.Client, cache *rediscache.Client, cfg Config) *Service {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Service{
		runner: runner,
		db:     db,
		cache:  cache,
		cfg:    cfg,
	}
}

// Split runs the splitting collaborator on an uploaded scratch CSV,
// then lists the instructor data directory and returns the deduplicated
// instructor set. The scratch file is removed whether or not the
// collaborator succeeded.
func (s *Service) Split(ctx context.Context, csvPath, originalName string, size int64) ([]Instructor, error) {
	start := time.Now()
	runID := uuid.New().String()

	defer func() {
		if err := os.Remove(csvPath); err != nil {
			logger.Warn("Failed to remove scratch upload", zap.String("path", csvPath), zap.Error(err))
		}
	}()

	_, err := s.runner.Run(ctx, s.cfg.SplitScript, csvPath)
	if err != nil {
		err = recoverSplitError(err)
		s.recordUpload(runID, originalName, size, 0, err, start)
		if errors.Is(err, ErrNoInstructorData) {
			metrics.UploadsTotal.WithLabelValues("empty").Inc()
		} else {
			metrics.UploadsTotal.WithLabelValues("failed").Inc()
		}
		return nil, err
	}

	instructors, err := s.ListInstructors()
	if err != nil {
		s.recordUpload(runID, originalName, size, 0, err, start)
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if len(instructors) == 0 {
		s.recordUpload(runID, originalName, size, 0, ErrNoInstructorData, start)
		metrics.UploadsTotal.WithLabelValues("empty").Inc()
		return nil, ErrNoInstructorData
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAnalyses(ctx); err != nil {
			logger.Warn("Failed to invalidate analysis cache", zap.Error(err))
		}
	}

	s.recordUpload(runID, originalName, size, len(instructors), nil, start)
	metrics.UploadsTotal.WithLabelValues("ok").Inc()

	logger.Info("Upload split complete",
		zap.String("run_id", runID),
		zap.String("file", originalName),
		zap.Int("instructors", len(instructors)),
	)

	return instructors, nil
}

// ListInstructors scans the instructor data directory for files with
// the feedback suffix, sorted lexicographically, deduplicated by
// derived id (first occurrence wins).
func (s *Service) ListInstructors() ([]Instructor, error) {
	entries, err := os.ReadDir(s.cfg.InstructorDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read instructor directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FeedbackSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	seen := make(map[string]struct{}, len(names))
	instructors := make([]Instructor, 0, len(names))
	for _, name := range names {
		id := strings.TrimSuffix(name, FeedbackSuffix)
		// spaces and underscores are the same instructor
		key := strings.ReplaceAll(id, " ", "_")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		instructors = append(instructors, Instructor{
			ID:       id,
			Name:     strings.ReplaceAll(id, "_", " "),
			Filename: name,
		})
	}

	return instructors, nil
}

// Analyze runs the analysis collaborator against one previously split
// instructor file and returns its parsed output. The file must exist
// before any process is spawned.
func (s *Service) Analyze(ctx context.Context, filename string) (*AnalysisResult, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return nil, ErrInvalidFilename
	}

	path := filepath.Join(s.cfg.InstructorDir, filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to stat instructor file: %w", err)
	}

	fileHash := s.hashFile(path)
	if result, ok := s.cachedAnalysis(ctx, fileHash); ok {
		metrics.CacheHits.WithLabelValues("analysis").Inc()
		return result, nil
	}
	metrics.CacheMisses.WithLabelValues("analysis").Inc()

	start := time.Now()
	runID := uuid.New().String()

	stdout, err := s.runner.Run(ctx, s.cfg.AnalyzeScript, path)
	if err != nil {
		err = recoverStructuredError(err)
		s.recordAnalysis(runID, filename, nil, err, start)
		metrics.AnalysesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	result, err := parseAnalyzerOutput(stdout)
	if err != nil {
		s.recordAnalysis(runID, filename, nil, err, start)
		metrics.AnalysesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	s.recordAnalysis(runID, filename, result, nil, start)
	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	if s.cache != nil && fileHash != "" {
		if err := s.cache.SetAnalysis(ctx, fileHash, result, s.cfg.CacheTTL); err != nil {
			logger.Warn("Failed to cache analysis", zap.Error(err))
		}
	}

	logger.Info("Instructor file analyzed",
		zap.String("run_id", runID),
		zap.String("filename", filename),
		zap.Int("responses", result.Summary.TotalResponses),
		zap.Duration("latency", time.Since(start)),
	)

	return result, nil
}

// RuntimeAvailable reports whether the Python probe found an
// interpreter at startup.
func (s *Service) RuntimeAvailable() bool {
	return s.runner.Available()
}

func (s *Service) RuntimeVersion() string {
	return s.runner.RuntimeVersion()
}

// History returns the most recent upload runs, analysis runs and chat
// exchanges. Empty when no history store is configured.
func (s *Service) History(limit int) ([]models.UploadRun, []models.AnalysisRun, []models.ChatExchange, error) {
	if s.db == nil {
		return nil, nil, nil, nil
	}
	uploads, err := s.db.RecentUploadRuns(limit)
	if err != nil {
		return nil, nil, nil, err
	}
	analyses, err := s.db.RecentAnalysisRuns(limit)
	if err != nil {
		return nil, nil, nil, err
	}
	chats, err := s.db.RecentChatExchanges(limit)
	if err != nil {
		return nil, nil, nil, err
	}
	return uploads, analyses, chats, nil
}

// parseAnalyzerOutput decodes the analyzer's stdout. An `error` field
// in otherwise well-formed JSON is relayed as a client-level rejection.
func parseAnalyzerOutput(stdout string) (*AnalysisResult, error) {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(stdout), &probe); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer output: %w", err)
	}
	if probe.Error != "" {
		return nil, &RejectedError{Message: probe.Error}
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer output: %w", err)
	}
	return &result, nil
}

// recoverSplitError maps the splitter's non-zero exit onto
// ErrNoInstructorData when its diagnostics show the CSV itself was at
// fault (missing or empty "Instructor" column); the splitter reports
// these on stdout before exiting 1. Anything else stays a server error.
func recoverSplitError(err error) error {
	var runErr *python.RunError
	if !errors.As(err, &runErr) {
		return err
	}

	out := runErr.Stdout + runErr.Stderr
	if strings.Contains(out, "must have 'Instructor' column") ||
		strings.Contains(out, "No instructor data found") {
		return ErrNoInstructorData
	}
	return runErr
}

// recoverStructuredError maps a non-zero exit onto the analyzer's own
// JSON error message when it printed one before dying, keeping the raw
// stderr/stdout text as the fallback diagnostic.
func recoverStructuredError(err error) error {
	var runErr *python.RunError
	if !errors.As(err, &runErr) {
		return err
	}

	var probe struct {
		Error string `json:"error"`
	}
	if jsonErr := json.Unmarshal([]byte(runErr.Stdout), &probe); jsonErr == nil && probe.Error != "" {
		return fmt.Errorf("analysis failed: %s", probe.Error)
	}
	return runErr
}

func (s *Service) hashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to hash instructor file", zap.String("path", path), zap.Error(err))
		return ""
	}
	return utils.HashBytes(data)
}

func (s *Service) cachedAnalysis(ctx context.Context, fileHash string) (*AnalysisResult, bool) {
	if s.cache == nil || fileHash == "" {
		return nil, false
	}
	var result AnalysisResult
	hit, err := s.cache.GetAnalysis(ctx, fileHash, &result)
	if err != nil {
		logger.Warn("Analysis cache lookup failed", zap.Error(err))
		return nil, false
	}
	if !hit {
		return nil, false
	}
	return &result, true
}

func (s *Service) recordUpload(runID, originalName string, size int64, count int, runErr error, start time.Time) {
	if s.db == nil {
		return
	}
	run := &models.UploadRun{
		ID:              runID,
		OriginalName:    originalName,
		SizeBytes:       size,
		InstructorCount: count,
		Status:          models.StatusOK,
		LatencyMS:       int(time.Since(start).Milliseconds()),
		CreatedAt:       time.Now(),
	}
	if runErr != nil {
		run.Status = models.StatusFailed
		run.Error = runErr.Error()
	}
	if err := s.db.InsertUploadRun(run); err != nil {
		logger.Warn("Failed to record upload run", zap.Error(err))
	}
}

func (s *Service) recordAnalysis(runID, filename string, result *AnalysisResult, runErr error, start time.Time) {
	if s.db == nil {
		return
	}
	run := &models.AnalysisRun{
		ID:        runID,
		Filename:  filename,
		Status:    models.StatusOK,
		LatencyMS: int(time.Since(start).Milliseconds()),
		CreatedAt: time.Now(),
	}
	if result != nil {
		run.TotalResponses = result.Summary.TotalResponses
		run.AverageRating = result.Summary.AverageRating
	}
	if runErr != nil {
		run.Status = models.StatusFailed
		run.Error = runErr.Error()
	}
	if err := s.db.InsertAnalysisRun(run); err != nil {
		logger.Warn("Failed to record analysis run", zap.Error(err))
	}
}
