package extraction

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	apperrors "github.com/physiolab/soapnote/internal/errors"
	"github.com/physiolab/soapnote/internal/llm"
)

const validResponse = `{
	"patient_name": "Jane Doe",
	"session_date": "2026-01-15",
	"subjective": "Patient reports reduced lower back pain since last week.",
	"objective": "Lumbar flexion improved to 70 degrees, gait symmetric.",
	"assessment": "Steady progress toward mobility goals, low re-injury risk.",
	"plan": "Continue strengthening program, review in two weeks."
}`

const sampleTranscript = "Therapist: how has the back felt since our last session? " +
	"Patient: much better, the pain is down to a three out of ten most days."

type scriptedLLM struct {
	responses []string
	err       error
	requests  []llm.CompletionRequest
}

func (s *scriptedLLM) Name() string                         { return "scripted" }
func (s *scriptedLLM) IsAvailable(ctx context.Context) bool { return true }

func (s *scriptedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &llm.CompletionResponse{Content: s.responses[idx]}, nil
}

func TestExtractValidFirstAttempt(t *testing.T) {
	stub := &scriptedLLM{responses: []string{validResponse}}
	ex := NewExtractor(stub, Config{}, nil)

	record, err := ex.Extract(context.Background(), sampleTranscript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.PatientName != "Jane Doe" {
		t.Errorf("patient name = %q", record.PatientName)
	}
	if len(stub.requests) != 1 {
		t.Errorf("expected single attempt, got %d", len(stub.requests))
	}

	req := stub.requests[0]
	if !req.JSONMode {
		t.Error("expected JSON mode")
	}
	if req.Temperature != 0.1 {
		t.Errorf("temperature = %f", req.Temperature)
	}
	if !strings.Contains(req.SystemPrompt, "SOAP") {
		t.Error("system prompt should carry the SOAP instructions")
	}
}

func TestExtractRepromptsOnInvalidOutput(t *testing.T) {
	invalid := `{"patient_name": "", "subjective": "short"}`
	stub := &scriptedLLM{responses: []string{invalid, validResponse}}
	ex := NewExtractor(stub, Config{}, nil)

	record, err := ex.Extract(context.Background(), sampleTranscript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Plan == "" {
		t.Error("expected populated record from second attempt")
	}
	if len(stub.requests) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(stub.requests))
	}

	second := stub.requests[1].SystemPrompt
	if !strings.Contains(second, "failed validation") {
		t.Error("corrective prompt should mention the failure")
	}
	if !strings.Contains(second, "patient_name") {
		t.Error("corrective prompt should quote the violated field")
	}
}

func TestExtractExhaustsAttempts(t *testing.T) {
	stub := &scriptedLLM{responses: []string{"not json at all"}}
	ex := NewExtractor(stub, Config{MaxAttempts: 3}, nil)

	_, err := ex.Extract(context.Background(), sampleTranscript)
	if err == nil {
		t.Fatal("expected error")
	}
	if apperrors.CodeOf(err) != apperrors.ErrCodeExtractionFailed {
		t.Errorf("expected EXTRACTION_FAILED, got %v", apperrors.CodeOf(err))
	}
	if len(stub.requests) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(stub.requests))
	}
}

func TestExtractProviderFailureIsNotReprompted(t *testing.T) {
	stub := &scriptedLLM{err: apperrors.ConnectionFailed("language model")}
	ex := NewExtractor(stub, Config{MaxAttempts: 3}, nil)

	_, err := ex.Extract(context.Background(), sampleTranscript)
	if err == nil {
		t.Fatal("expected error")
	}
	if apperrors.CodeOf(err) != apperrors.ErrCodeExtractionFailed {
		t.Errorf("expected EXTRACTION_FAILED, got %v", apperrors.CodeOf(err))
	}
	if len(stub.requests) != 1 {
		t.Errorf("provider failure should not re-prompt, got %d attempts", len(stub.requests))
	}
}

func TestExtractRejectsShortTranscript(t *testing.T) {
	stub := &scriptedLLM{responses: []string{validResponse}}
	ex := NewExtractor(stub, Config{}, nil)

	_, err := ex.Extract(context.Background(), "too short")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(stub.requests) != 0 {
		t.Error("short transcript should fail before any model call")
	}
}

func TestExtractMarkdownFencedResponse(t *testing.T) {
	stub := &scriptedLLM{responses: []string{"```json\n" + validResponse + "\n```"}}
	ex := NewExtractor(stub, Config{}, nil)

	record, err := ex.Extract(context.Background(), sampleTranscript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.PatientName != "Jane Doe" {
		t.Errorf("patient name = %q", record.PatientName)
	}
}

func TestTruncateToBudget(t *testing.T) {
	sentence := "This sentence is exactly forty characts. "
	text := strings.Repeat(sentence, 100)

	budget := 200 // tokens, so 800 characters
	out, truncated := truncateToBudget(text, budget)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if EstimateTokens(out) > budget {
		t.Errorf("truncated text still over budget: %d tokens", EstimateTokens(out))
	}
	if !strings.HasSuffix(out, ".") {
		t.Errorf("truncation should end on a sentence boundary, got %q", out[len(out)-20:])
	}

	again, _ := truncateToBudget(text, budget)
	if again != out {
		t.Error("truncation must be deterministic")
	}

	short, truncated := truncateToBudget("short text.", budget)
	if truncated || short != "short text." {
		t.Error("text under budget must pass through unchanged")
	}
}

func TestTruncateToBudgetKeepsRunesWhole(t *testing.T) {
	// No ". " boundary anywhere, so the cut lands mid-sentence inside a
	// run of multibyte characters.
	text := strings.Repeat("пациент отмечает улучшение подвижности ", 50)

	out, truncated := truncateToBudget(text, 20)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if !utf8.ValidString(out) {
		t.Errorf("truncation produced invalid UTF-8: %q", out)
	}
	if EstimateTokens(out) > 20 {
		t.Errorf("truncated text still over budget: %d tokens", EstimateTokens(out))
	}

	again, _ := truncateToBudget(text, 20)
	if again != out {
		t.Error("truncation must be deterministic")
	}
}
