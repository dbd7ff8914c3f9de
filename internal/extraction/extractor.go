package extraction

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "github.com/physiolab/soapnote/internal/errors"
	"github.com/physiolab/soapnote/internal/llm"
	"github.com/physiolab/soapnote/internal/logger"
	"github.com/physiolab/soapnote/internal/soap"
)

const (
	// minTranscriptChars is the shortest transcript worth extracting from.
	minTranscriptChars = 50

	// responseReserveTokens is held back from the token budget for the
	// model's JSON response.
	responseReserveTokens = 500

	defaultMaxAttempts = 3
	defaultMaxTokens   = 4096
	defaultTemperature = 0.1
)

// Config holds extractor settings.
type Config struct {
	// Model overrides the provider's default model.
	Model string
	// MaxTokens is the provider's context budget; the transcript is
	// truncated to fit it. 0 uses a default.
	MaxTokens int
	// MaxAttempts bounds extraction attempts including corrective
	// re-prompts. 0 uses a default.
	MaxAttempts int
	// Temperature for generation. Low values keep extraction consistent.
	Temperature float64
}

// Extractor converts transcripts into validated SOAP records.
type Extractor struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger
	today    func() soap.Date
}

// NewExtractor creates an extractor backed by the given LLM provider.
func NewExtractor(p llm.Provider, cfg Config, log *logger.Logger) *Extractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Extractor{
		provider: p,
		cfg:      cfg,
		log:      log.WithComponent("extraction"),
		today:    soap.Today,
	}
}

// Extract builds the clinical prompt around the transcript, calls the model,
// and returns the validated record. Malformed or invalid responses trigger a
// corrective re-prompt quoting the violations; after the attempt budget is
// spent the last failure surfaces as an extraction error.
func (e *Extractor) Extract(ctx context.Context, transcript string) (*soap.Record, error) {
	transcript = strings.TrimSpace(transcript)
	if len(transcript) < minTranscriptChars {
		return nil, apperrors.ExtractionFailed("transcript too short for meaningful extraction").
			WithDetail("transcript_chars", len(transcript))
	}

	budget := e.cfg.MaxTokens - responseReserveTokens
	input, truncated := truncateToBudget(transcript, budget)
	if truncated {
		e.log.Warn("transcript exceeds token budget, truncated at sentence boundary", logger.Fields(
			"estimated_tokens", EstimateTokens(transcript),
			"budget_tokens", budget,
		))
	}

	today := e.today().String()
	var lastErr string
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		record, err := e.attempt(ctx, input, today, lastErr)
		if err == nil {
			e.log.Info("extraction succeeded", logger.Fields("attempt", attempt))
			return record, nil
		}
		if _, ok := apperrors.AsAppError(err); ok && apperrors.CodeOf(err) == apperrors.ErrCodeExtractionFailed {
			// Provider-level failure: the transport already retried
			// transient conditions, nothing a re-prompt can fix.
			return nil, err
		}

		lastErr = err.Error()
		e.log.Warn("extraction attempt produced invalid output", logger.Fields(
			"attempt", attempt,
			"reason", lastErr,
		))
	}

	return nil, apperrors.ExtractionFailed("model output failed validation after retries").
		WithDetail("attempts", e.cfg.MaxAttempts).
		WithDetail("last_error", lastErr)
}

// attempt runs one completion and validates it. A returned AppError with the
// extraction code is fatal; any other error feeds the corrective re-prompt.
func (e *Extractor) attempt(ctx context.Context, input, today, lastErr string) (*soap.Record, error) {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model:        e.cfg.Model,
		SystemPrompt: buildSystemPrompt(today, lastErr),
		Messages:     []llm.Message{{Role: "user", Content: input}},
		Temperature:  e.cfg.Temperature,
		MaxTokens:    e.cfg.MaxTokens,
		JSONMode:     true,
	})
	if err != nil {
		return nil, apperrors.ExtractionFailed("language model call failed").WithCause(err)
	}

	var record soap.Record
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Content)), &record); err != nil {
		return nil, apperrors.Validation("response is not valid JSON: " + err.Error())
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return &record, nil
}
