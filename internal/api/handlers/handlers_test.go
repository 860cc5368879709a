package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/feedback-insight/backend/internal/chat"
	"github.com/feedback-insight/backend/internal/feedback"
	"github.com/feedback-insight/backend/internal/python"
)

type stubRunner struct {
	available bool
	version   string
	calls     int
	runFn     func(ctx context.Context, script string, args ...string) (string, error)
}

func (s *stubRunner) Run(ctx context.Context, script string, args ...string) (string, error) {
	s.calls++
	if s.runFn == nil {
		return "", nil
	}
	return s.runFn(ctx, script, args...)
}

func (s *stubRunner) Available() bool        { return s.available }
func (s *stubRunner) RuntimeVersion() string { return s.version }

type testEnv struct {
	app           *fiber.App
	runner        *stubRunner
	instructorDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	runner := &stubRunner{available: true, version: "Python 3.11.4"}
	instructorDir := t.TempDir()

	svc := feedback.NewService(runner, nil, nil, feedback.Config{
		SplitScript:   "split.py",
		AnalyzeScript: "analyze.py",
		InstructorDir: instructorDir,
	})

	app := fiber.New()
	api := app.Group("/api")

	authHandler := NewAuthHandler("admin", "secret")
	feedbackHandler := NewFeedbackHandler(svc, t.TempDir(), 1<<20)
	exportHandler := NewExportHandler()
	chatHandler := NewChatHandler(chat.NewService(nil, nil))

	api.Post("/login", authHandler.Login)
	api.Post("/upload", feedbackHandler.Upload)
	api.Post("/analyze-instructor", feedbackHandler.Analyze)
	api.Get("/health", feedbackHandler.Health)
	api.Post("/download-report", exportHandler.DownloadReport)
	api.Post("/download-csv", exportHandler.DownloadCSV)
	api.Post("/chat", chatHandler.Chat)

	return &testEnv{app: app, runner: runner, instructorDir: instructorDir}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d", resp.StatusCode, want)
	}
}

func uploadRequest(t *testing.T, filename, contentType, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/login", map[string]string{
		"username": "admin", "password": "secret",
	})
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSON(t, resp)
	user, ok := body["user"].(map[string]interface{})
	if !ok || user["username"] != "admin" || user["role"] != "admin" {
		t.Errorf("unexpected login payload: %v", body)
	}

	resp = doJSON(t, env.app, http.MethodPost, "/api/login", map[string]string{
		"username": "admin", "password": "wrong",
	})
	assertStatus(t, resp, http.StatusUnauthorized)
	body = decodeJSON(t, resp)
	if body["success"] != false || body["error"] != "Invalid credentials" {
		t.Errorf("unexpected rejection payload: %v", body)
	}
}

func TestUploadRejectsNonCSVBeforeSpawn(t *testing.T) {
	env := newTestEnv(t)

	req := uploadRequest(t, "report.pdf", "application/pdf", "%PDF-1.4")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
	if env.runner.calls != 0 {
		t.Error("splitter should not be invoked for a rejected upload")
	}
}

func TestUploadMissingFile(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/upload", map[string]string{})
	assertStatus(t, resp, http.StatusBadRequest)
	body := decodeJSON(t, resp)
	if body["error"] != "No file uploaded" {
		t.Errorf("unexpected error: %v", body["error"])
	}
}

func TestUploadNoInstructorData(t *testing.T) {
	env := newTestEnv(t)

	// splitter runs but produces no files
	req := uploadRequest(t, "feedback.csv", "text/csv", "Name,Comment\nA,ok\n")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
	body := decodeJSON(t, resp)
	if !strings.Contains(body["error"].(string), "Instructor") {
		t.Errorf("error should mention the missing Instructor column: %v", body["error"])
	}
}

func TestUploadMissingInstructorColumnIsClientError(t *testing.T) {
	env := newTestEnv(t)
	env.runner.runFn = func(ctx context.Context, script string, args ...string) (string, error) {
		return "", &python.RunError{
			ExitCode: 1,
			Stdout:   "Error: CSV must have 'Instructor' column. Found columns: ['Name', 'Comment']\n",
		}
	}

	req := uploadRequest(t, "feedback.csv", "text/csv", "Name,Comment\nA,ok\n")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
	body := decodeJSON(t, resp)
	if !strings.Contains(body["error"].(string), "No instructor data found") {
		t.Errorf("expected the missing-column diagnostic, got %v", body["error"])
	}
}

func TestUploadSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.runner.runFn = func(ctx context.Context, script string, args ...string) (string, error) {
		for _, name := range []string{"Alice_Smith_feedback.csv", "Bob_Jones_feedback.csv"} {
			if err := os.WriteFile(filepath.Join(env.instructorDir, name), []byte("data"), 0o644); err != nil {
				return "", err
			}
		}
		return "", nil
	}

	req := uploadRequest(t, "feedback.csv", "text/csv", "Instructor,Comment\nAlice Smith,ok\n")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := decodeJSON(t, resp)
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}
	instructors, ok := body["instructors"].([]interface{})
	if !ok || len(instructors) != 2 {
		t.Fatalf("unexpected instructors payload: %v", body["instructors"])
	}
	first := instructors[0].(map[string]interface{})
	if first["name"] != "Alice Smith" {
		t.Errorf("first instructor = %v", first)
	}
}

func TestUploadRuntimeUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.runner.available = false

	req := uploadRequest(t, "feedback.csv", "text/csv", "Instructor,Comment\n")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	assertStatus(t, resp, http.StatusInternalServerError)
	if env.runner.calls != 0 {
		t.Error("no process should be spawned without a runtime")
	}
}

func TestAnalyzeMissingFilename(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/analyze-instructor", map[string]string{})
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestAnalyzeUnknownFile(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/analyze-instructor", map[string]string{
		"filename": "Ghost_feedback.csv",
	})
	assertStatus(t, resp, http.StatusNotFound)
	if env.runner.calls != 0 {
		t.Error("analyzer should not be invoked for a missing file")
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(filepath.Join(env.instructorDir, "Alice_Smith_feedback.csv"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write instructor file: %v", err)
	}
	env.runner.runFn = func(ctx context.Context, script string, args ...string) (string, error) {
		return `{"summary": {"total_responses": 2, "average_rating": 4.5}, "individual_analysis": []}`, nil
	}

	resp := doJSON(t, env.app, http.MethodPost, "/api/analyze-instructor", map[string]string{
		"filename": "Alice_Smith_feedback.csv",
	})
	assertStatus(t, resp, http.StatusOK)

	body := decodeJSON(t, resp)
	if body["filename"] != "Alice_Smith_feedback.csv" {
		t.Errorf("filename echo = %v", body["filename"])
	}
	summary, ok := body["summary"].(map[string]interface{})
	if !ok || summary["total_responses"] != float64(2) {
		t.Errorf("unexpected summary: %v", body["summary"])
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env.app, http.MethodGet, "/api/health", nil)
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSON(t, resp)
	if body["python_available"] != true || body["python_version"] != "Python 3.11.4" {
		t.Errorf("unexpected health payload: %v", body)
	}

	env.runner.available = false
	env.runner.version = ""
	resp = doJSON(t, env.app, http.MethodGet, "/api/health", nil)
	assertStatus(t, resp, http.StatusOK)
	body = decodeJSON(t, resp)
	if body["python_available"] != false {
		t.Errorf("health should report the missing runtime: %v", body)
	}
}

func TestDownloadReport(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/download-report", map[string]interface{}{
		"instructor": "Alice Smith",
		"summary":    map[string]interface{}{"total_responses": 4, "average_rating": 4.0},
	})
	assertStatus(t, resp, http.StatusOK)

	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Alice_Smith_feedback_report.txt") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "Total Responses:    4") {
		t.Errorf("report body missing totals: %q", string(data))
	}
}

func TestDownloadCSV(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/download-csv", map[string]interface{}{
		"instructor": "Alice Smith",
		"summary":    map[string]interface{}{"total_responses": 1},
		"individual_analysis": []map[string]interface{}{
			{"student_id": "S1", "rating": "5", "sentiment": "Positive"},
		},
	})
	assertStatus(t, resp, http.StatusOK)

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Alice_Smith_feedback_data.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(data), "Student ID,Course,Instructor") {
		t.Errorf("csv missing header: %q", string(data))
	}
}

func TestChatFallback(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/chat", map[string]interface{}{
		"message": "what is the average rating?",
		"summary": map[string]interface{}{"total_responses": 8, "average_rating": 3.9},
	})
	assertStatus(t, resp, http.StatusOK)

	body := decodeJSON(t, resp)
	if body["source"] != chat.SourceFallback {
		t.Errorf("source = %v, want fallback", body["source"])
	}
	if !strings.Contains(body["reply"].(string), "3.9") {
		t.Errorf("reply should quote the rating: %v", body["reply"])
	}
}

func TestChatEmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/chat", map[string]interface{}{
		"message": "   ",
	})
	assertStatus(t, resp, http.StatusBadRequest)
}
