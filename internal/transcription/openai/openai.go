// Package openai implements transcription.Provider against an
// OpenAI-compatible audio transcriptions API (Whisper).
package openai

import (
	"bytes"
	"context"
	"net/http"
	"time"

	apperrors "github.com/physiolab/soapnote/internal/errors"
	"github.com/physiolab/soapnote/internal/httpclient"
	"github.com/physiolab/soapnote/internal/resilience"
	"github.com/physiolab/soapnote/internal/transcription"
)

const (
	// ProviderName is the registered name for this provider.
	ProviderName = "openai-whisper"

	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "whisper-1"
	defaultTimeout = 300 * time.Second
)

// Config holds configuration for the Whisper transcription provider.
type Config struct {
	BaseURL  string        `json:"base_url" mapstructure:"base_url"`
	APIKey   string        `json:"-" mapstructure:"api_key"`
	Model    string        `json:"model" mapstructure:"model"`
	Language string        `json:"language,omitempty" mapstructure:"language"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
	Retry    *resilience.RetryConfig
}

// Provider implements transcription.Provider using the OpenAI audio API.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// NewProvider creates a new Whisper transcription provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	retry := cfg.Retry
	if retry == nil {
		r := resilience.DefaultRetryConfig()
		r.RetryIf = httpclient.IsRetryable
		retry = &r
	}
	return &Provider{
		cfg: cfg,
		client: httpclient.New(httpclient.Config{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Auth:    &httpclient.AuthConfig{BearerToken: cfg.APIKey},
			Retry:   retry,
		}),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the API is reachable with the configured credentials.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Do(ctx, &httpclient.Request{Method: http.MethodGet, Path: "/v1/models"})
	return err == nil
}

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration,omitempty"`
	Language string  `json:"language,omitempty"`
}

// Transcribe uploads one audio segment and returns its plain text. Transient
// failures are retried by the underlying client; anything that survives is
// wrapped as a transcription failure.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}

	fields := map[string]string{
		"model":           model,
		"response_format": "json",
	}
	if lang := req.Language; lang != "" {
		fields["language"] = lang
	} else if p.cfg.Language != "" {
		fields["language"] = p.cfg.Language
	}

	resp, err := p.client.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/audio/transcriptions",
		Multipart: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName: "file",
				FileName:  req.FileName,
				Reader:    bytes.NewReader(req.Data),
			}},
		},
	})
	if err != nil {
		return nil, apperrors.TranscriptionFailed(err.Error()).WithCause(err)
	}

	var parsed transcriptionResponse
	if err := resp.DecodeJSON(&parsed); err != nil {
		return nil, apperrors.TranscriptionFailed("malformed transcription response").WithCause(err)
	}
	return &transcription.Response{
		Text:     parsed.Text,
		Duration: parsed.Duration,
		Language: parsed.Language,
	}, nil
}
