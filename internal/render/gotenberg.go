package render

import (
	"bytes"
	"context"
	"net/http"
	"time"

	apperrors "github.com/physiolab/soapnote/internal/errors"
	"github.com/physiolab/soapnote/internal/httpclient"
)

const (
	// EngineName is the registered name for the Gotenberg render engine.
	EngineName = "gotenberg"

	defaultEngineURL     = "http://localhost:3000"
	defaultEngineTimeout = 60 * time.Second
)

// Engine rasterizes a filled HTML document to PDF.
type Engine interface {
	// Name returns the engine's unique name.
	Name() string
	// IsAvailable checks if the engine is reachable.
	IsAvailable(ctx context.Context) bool
	// ConvertHTML renders an HTML document to PDF bytes.
	ConvertHTML(ctx context.Context, html []byte) ([]byte, error)
}

// GotenbergConfig holds settings for the Gotenberg render engine client.
type GotenbergConfig struct {
	URL     string        `json:"url" mapstructure:"url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Gotenberg converts HTML to PDF via a Gotenberg-compatible sidecar.
// Conversion is deterministic for a given document, so failed calls are
// never retried.
type Gotenberg struct {
	client *httpclient.Client
}

// NewGotenberg creates a render engine client.
func NewGotenberg(cfg GotenbergConfig) *Gotenberg {
	if cfg.URL == "" {
		cfg.URL = defaultEngineURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultEngineTimeout
	}
	return &Gotenberg{
		client: httpclient.New(httpclient.Config{
			BaseURL: cfg.URL,
			Timeout: cfg.Timeout,
		}),
	}
}

// Name returns the engine name.
func (g *Gotenberg) Name() string { return EngineName }

// IsAvailable checks if the engine's health endpoint answers.
func (g *Gotenberg) IsAvailable(ctx context.Context) bool {
	_, err := g.client.Do(ctx, &httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil
}

// ConvertHTML sends the document to the Chromium conversion route and
// returns the PDF bytes.
func (g *Gotenberg) ConvertHTML(ctx context.Context, html []byte) ([]byte, error) {
	resp, err := g.client.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		Path:   "/forms/chromium/convert/html",
		Multipart: &httpclient.MultipartBody{
			Files: []httpclient.FileField{{
				FieldName: "files",
				FileName:  "index.html",
				Reader:    bytes.NewReader(html),
			}},
		},
	})
	if err != nil {
		return nil, apperrors.RenderFailed("render engine conversion failed").WithCause(err)
	}
	return resp.Body, nil
}
