package server

import (
	"context"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/physiolab/soapnote/internal/audio"
	apperrors "github.com/physiolab/soapnote/internal/errors"
	"github.com/physiolab/soapnote/internal/logger"
	"github.com/physiolab/soapnote/internal/soap"
	"github.com/physiolab/soapnote/internal/workflow"
)

// Pipeline is the part of the orchestrator the HTTP handler needs.
type Pipeline interface {
	Process(ctx context.Context, inputPath, outputName string) (*workflow.PipelineRun, error)
}

// Probe reports whether a named external dependency answers.
type Probe struct {
	Name  string
	Check func(ctx context.Context) bool
}

// Handler exposes the pipeline over HTTP.
type Handler struct {
	pipeline Pipeline
	probes   []Probe
	log      *logger.Logger
}

// NewHandler creates a Handler bound to the given pipeline. Probes are
// reported by the health endpoint.
func NewHandler(pipeline Pipeline, log *logger.Logger, probes ...Probe) *Handler {
	return &Handler{
		pipeline: pipeline,
		probes:   probes,
		log:      log.WithComponent("handler"),
	}
}

// RegisterRoutes mounts the handler's routes on the engine.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.POST("/process-audio/", h.ProcessAudio)
	engine.GET("/healthz", h.Health)
}

// processResponse is the success body for POST /process-audio/.
type processResponse struct {
	Status      string       `json:"status"`
	RunID       string       `json:"run_id"`
	PatientName string       `json:"patient_name"`
	SessionDate soap.Date    `json:"session_date"`
	SOAP        *soap.Record `json:"soap"`
	ReportPath  string       `json:"report_path"`
}

// ProcessAudio accepts a multipart audio upload in the "file" field, runs
// the full pipeline on it, and returns the extracted record plus the path
// of the written report.
func (h *Handler) ProcessAudio(c *gin.Context) {
	upload, err := c.FormFile("file")
	if err != nil {
		RespondWithError(c, apperrors.MissingField("file"))
		return
	}

	// Reject unsupported extensions before buffering the upload to disk.
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(upload.Filename)), ".")
	if !audio.IsSupported(ext) {
		RespondWithError(c, apperrors.UnsupportedFormat(ext, audio.SupportedFormats()))
		return
	}

	tempPath, err := h.saveUpload(c, upload, ext)
	if err != nil {
		RespondWithError(c, apperrors.Internal(err))
		return
	}
	defer os.Remove(tempPath)

	h.log.Info("processing uploaded audio", logger.Fields(
		"file", upload.Filename,
		"size_bytes", upload.Size,
	))

	run, err := h.pipeline.Process(c.Request.Context(), tempPath, "")
	if err != nil {
		RespondWithError(c, err)
		return
	}

	RespondOK(c, processResponse{
		Status:      "success",
		RunID:       run.ID,
		PatientName: run.Record.PatientName,
		SessionDate: run.Record.SessionDate,
		SOAP:        run.Record,
		ReportPath:  run.OutputPath,
	})
}

// saveUpload buffers the multipart file to a temp file carrying the
// original extension so the chunker can classify it.
func (h *Handler) saveUpload(c *gin.Context, upload *multipart.FileHeader, ext string) (string, error) {
	temp, err := os.CreateTemp("", "upload-*."+ext)
	if err != nil {
		return "", err
	}
	path := temp.Name()
	if err := temp.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	if err := c.SaveUploadedFile(upload, path); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// Health reports liveness plus the reachability of each probed dependency.
// The status stays "ok" even when a provider is down; callers read the
// provider map to decide.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if len(h.probes) > 0 {
		providers := make(map[string]bool, len(h.probes))
		for _, p := range h.probes {
			providers[p.Name] = p.Check(c.Request.Context())
		}
		body["providers"] = providers
	}
	c.JSON(http.StatusOK, body)
}
