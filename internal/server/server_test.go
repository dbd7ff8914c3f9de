package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/physiolab/soapnote/internal/errors"
	"github.com/physiolab/soapnote/internal/logger"
	"github.com/physiolab/soapnote/internal/soap"
	"github.com/physiolab/soapnote/internal/workflow"
)

type stubPipeline struct {
	run  *workflow.PipelineRun
	err  error
	seen []string
}

func (s *stubPipeline) Process(ctx context.Context, inputPath, outputName string) (*workflow.PipelineRun, error) {
	s.seen = append(s.seen, inputPath)
	if s.err != nil {
		return nil, s.err
	}
	return s.run, nil
}

func testEngine(t *testing.T, pipeline Pipeline) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	NewHandler(pipeline, logger.NewDefault("test")).RegisterRoutes(engine)
	return engine
}

func uploadRequest(t *testing.T, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/process-audio/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestProcessAudioSuccess(t *testing.T) {
	record := &soap.Record{
		PatientName: "Jane Doe",
		SessionDate: soap.NewDate(2026, time.January, 15),
		Subjective:  "Reports reduced shoulder pain.",
		Objective:   "Active ROM improved to 150 degrees.",
		Assessment:  "Recovering as expected.",
		Plan:        "Continue strengthening twice weekly.",
	}
	pipeline := &stubPipeline{run: &workflow.PipelineRun{
		ID:         "run-1",
		State:      workflow.StateDone,
		OutputPath: "reports/SOAP_Jane_Doe_20260115_143000.pdf",
		Record:     record,
	}}
	engine := testEngine(t, pipeline)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, uploadRequest(t, "session.mp3", []byte("audio-bytes")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Status      string       `json:"status"`
			RunID       string       `json:"run_id"`
			PatientName string       `json:"patient_name"`
			SOAP        *soap.Record `json:"soap"`
			ReportPath  string       `json:"report_path"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Status != "success" {
		t.Errorf("status = %q, want success", body.Data.Status)
	}
	if body.Data.PatientName != "Jane Doe" {
		t.Errorf("patient_name = %q", body.Data.PatientName)
	}
	if body.Data.SOAP == nil || body.Data.SOAP.Plan != record.Plan {
		t.Errorf("soap payload missing or wrong: %+v", body.Data.SOAP)
	}
	if body.Data.ReportPath != pipeline.run.OutputPath {
		t.Errorf("report_path = %q", body.Data.ReportPath)
	}

	if len(pipeline.seen) != 1 {
		t.Fatalf("pipeline called %d times", len(pipeline.seen))
	}
	if ext := filepath.Ext(pipeline.seen[0]); ext != ".mp3" {
		t.Errorf("temp file extension = %q, want .mp3", ext)
	}
	if _, err := os.Stat(pipeline.seen[0]); !os.IsNotExist(err) {
		t.Errorf("temp upload %s not cleaned up", pipeline.seen[0])
	}
}

func TestProcessAudioMissingFile(t *testing.T) {
	pipeline := &stubPipeline{}
	engine := testEngine(t, pipeline)

	req := httptest.NewRequest(http.MethodPost, "/process-audio/", strings.NewReader(""))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(pipeline.seen) != 0 {
		t.Errorf("pipeline invoked for a request with no file")
	}
}

func TestProcessAudioUnsupportedFormat(t *testing.T) {
	pipeline := &stubPipeline{}
	engine := testEngine(t, pipeline)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, uploadRequest(t, "session.flac", []byte("audio-bytes")))

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Code != apperrors.ErrCodeUnsupportedFormat {
		t.Errorf("code = %q", body.Error.Code)
	}
	if len(pipeline.seen) != 0 {
		t.Errorf("pipeline invoked for an unsupported format")
	}
}

func TestProcessAudioPipelineError(t *testing.T) {
	pipeline := &stubPipeline{err: apperrors.ExtractionFailed("model never produced a valid record").WithStage("extracting")}
	engine := testEngine(t, pipeline)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, uploadRequest(t, "session.wav", []byte("audio-bytes")))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Code != apperrors.ErrCodeExtractionFailed {
		t.Errorf("code = %q", body.Error.Code)
	}
	if body.Error.Stage != "extracting" {
		t.Errorf("stage = %q", body.Error.Stage)
	}
}

func TestHealthz(t *testing.T) {
	engine := testEngine(t, &stubPipeline{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthzReportsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewHandler(&stubPipeline{}, logger.NewDefault("test"),
		Probe{Name: "openai-whisper", Check: func(ctx context.Context) bool { return true }},
		Probe{Name: "gotenberg", Check: func(ctx context.Context) bool { return false }},
	)
	handler.RegisterRoutes(engine)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status    string          `json:"status"`
		Providers map[string]bool `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Providers["openai-whisper"] || body.Providers["gotenberg"] {
		t.Errorf("providers = %v", body.Providers)
	}
}

func TestRequestIDHeader(t *testing.T) {
	engine := testEngine(t, &stubPipeline{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header not set")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-id")
	engine.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "caller-id" {
		t.Errorf("X-Request-Id = %q, want caller-id", got)
	}
}
