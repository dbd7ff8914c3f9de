package llm

import (
	"context"
	"testing"
)

type stubProvider struct {
	response string
	lastReq  CompletionRequest
}

func (s *stubProvider) Name() string                         { return "stub" }
func (s *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *stubProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.lastReq = req
	return &CompletionResponse{Content: s.response}, nil
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"markdown fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence no language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", `Here is the result: {"a":1} hope that helps`, `{"a":1}`},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"no json", "no object here", "no object here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompleteStructured(t *testing.T) {
	stub := &stubProvider{response: "```json\n{\"name\":\"Jane\"}\n```"}
	var out struct {
		Name string `json:"name"`
	}
	err := CompleteStructured(context.Background(), stub, CompletionRequest{
		Messages: []Message{{Role: "user", Content: "extract"}},
	}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "Jane" {
		t.Errorf("name = %q", out.Name)
	}
	if !stub.lastReq.JSONMode {
		t.Error("expected JSON mode to be forced on")
	}
}

func TestCompleteStructuredMalformed(t *testing.T) {
	stub := &stubProvider{response: "not json at all"}
	var out map[string]any
	if err := CompleteStructured(context.Background(), stub, CompletionRequest{}, &out); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
