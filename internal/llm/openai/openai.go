// Package openai implements llm.Provider against an OpenAI-compatible chat
// completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/physiolab/soapnote/internal/httpclient"
	"github.com/physiolab/soapnote/internal/llm"
	"github.com/physiolab/soapnote/internal/resilience"
)

const (
	// ProviderName is the registered name for this provider.
	ProviderName = "openai"

	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI chat completions provider.
type Config struct {
	BaseURL string        `json:"base_url" mapstructure:"base_url"`
	APIKey  string        `json:"-" mapstructure:"api_key"`
	Model   string        `json:"model" mapstructure:"model"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	Retry   *resilience.RetryConfig
}

// Provider implements llm.Provider using the OpenAI chat completions API.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// NewProvider creates a new OpenAI provider.
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

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      llm.Message `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage llm.Usage `json:"usage"`
}

// Complete sends a chat completion request and returns the full response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	body := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	resp, err := p.client.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/chat/completions",
		JSON:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	var parsed chatResponse
	if err := resp.DecodeJSON(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: response contains no choices")
	}

	return &llm.CompletionResponse{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage:   parsed.Usage,
	}, nil
}
