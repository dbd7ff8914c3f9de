package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/physiolab/soapnote/internal/audio"
	apperrors "github.com/physiolab/soapnote/internal/errors"
	"github.com/physiolab/soapnote/internal/extraction"
	"github.com/physiolab/soapnote/internal/llm"
	"github.com/physiolab/soapnote/internal/render"
	"github.com/physiolab/soapnote/internal/storage"
	"github.com/physiolab/soapnote/internal/transcription"
)

const validSoapJSON = `{
	"patient_name": "Jane Doe",
	"session_date": "2026-01-15",
	"subjective": "Patient reports reduced lower back pain since last week.",
	"objective": "Lumbar flexion improved to 70 degrees, gait symmetric.",
	"assessment": "Steady progress toward mobility goals.",
	"plan": "Continue strengthening program, review in two weeks."
}`

// stubSTT returns a fixed text per segment, optionally failing.
type stubSTT struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	err      error
	// delayByIndex makes later segments finish first to exercise
	// out-of-order completion.
	delayByIndex bool
	// holdEach keeps every call open long enough for overlap to register
	// in the peak gauge.
	holdEach time.Duration
}

func (s *stubSTT) Name() string                         { return "stub-stt" }
func (s *stubSTT) IsAvailable(ctx context.Context) bool { return true }

func (s *stubSTT) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	s.calls.Add(1)
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if cur <= p || s.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	if s.holdEach > 0 {
		time.Sleep(s.holdEach)
	}
	if s.err != nil {
		return nil, s.err
	}
	// Segment index is embedded in the upload name (segment_NNN.ext).
	name := strings.TrimSuffix(req.FileName, filepath.Ext(req.FileName))
	idx := strings.TrimPrefix(name, "segment_")
	if s.delayByIndex && (idx == "000" || idx == "001") {
		time.Sleep(20 * time.Millisecond)
	}
	return &transcription.Response{
		Text: fmt.Sprintf("segment %s where the patient describes steady improvement in pain and mobility.", idx),
	}, nil
}

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Name() string                         { return "stub-llm" }
func (s *stubLLM) IsAvailable(ctx context.Context) bool { return true }

func (s *stubLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.response}, nil
}

type failingEngine struct{}

func (failingEngine) Name() string                         { return "failing" }
func (failingEngine) IsAvailable(ctx context.Context) bool { return false }
func (failingEngine) ConvertHTML(ctx context.Context, html []byte) ([]byte, error) {
	return nil, apperrors.RenderFailed("engine crashed")
}

func writeAudio(t *testing.T, name string, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func newTestOrchestrator(t *testing.T, stt transcription.Provider, model llm.Provider,
	renderer *render.Renderer, threshold int64, workers int) (*Orchestrator, string) {
	t.Helper()
	outDir := t.TempDir()
	store, err := storage.NewLocal(outDir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ex := extraction.NewExtractor(model, extraction.Config{}, nil)
	fixed := func() time.Time { return time.Date(2026, time.January, 15, 14, 30, 0, 0, time.UTC) }
	o := New(audio.NewChunker(threshold), stt, ex, renderer, store, nil, Options{
		TranscribeWorkers: workers,
		Now:               fixed,
	})
	return o, outDir
}

func TestProcessEndToEnd(t *testing.T) {
	stt := &stubSTT{}
	o, outDir := newTestOrchestrator(t, stt, &stubLLM{response: validSoapJSON},
		render.NewRenderer(nil, render.FormatMarkdown), 1<<20, 2)

	input := writeAudio(t, "session.wav", 4000)
	run, err := o.Process(context.Background(), input, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.State != StateDone {
		t.Fatalf("state = %s", run.State)
	}
	if got := stt.calls.Load(); got != 1 {
		t.Errorf("expected 1 transcription call, got %d", got)
	}
	if run.Record == nil || run.Record.PatientName != "Jane Doe" {
		t.Errorf("unexpected record: %+v", run.Record)
	}
	if run.OutputPath != filepath.Join(outDir, "SOAP_Jane_Doe_20260115_143000.md") {
		t.Errorf("output path = %q", run.OutputPath)
	}
	data, err := os.ReadFile(run.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "Jane Doe") {
		t.Error("report missing patient name")
	}

	for _, stage := range []Stage{StageChunking, StageTranscribing, StageExtracting, StageRendering} {
		timing, ok := run.Timings[stage]
		if !ok || timing.End.Before(timing.Start) {
			t.Errorf("stage %s timing incomplete: %+v", stage, timing)
		}
	}
}

func TestProcessOutputNameOverride(t *testing.T) {
	o, outDir := newTestOrchestrator(t, &stubSTT{}, &stubLLM{response: validSoapJSON},
		render.NewRenderer(nil, render.FormatMarkdown), 1<<20, 1)

	input := writeAudio(t, "session.wav", 4000)
	run, err := o.Process(context.Background(), input, "my-report")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.OutputPath != filepath.Join(outDir, "my-report.md") {
		t.Errorf("output path = %q", run.OutputPath)
	}
}

func TestProcessUnsupportedFormatFailsBeforeNetwork(t *testing.T) {
	stt := &stubSTT{}
	o, outDir := newTestOrchestrator(t, stt, &stubLLM{response: validSoapJSON},
		render.NewRenderer(nil, render.FormatMarkdown), 1<<20, 1)

	input := writeAudio(t, "session.flac", 4000)
	run, err := o.Process(context.Background(), input, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if run.State != StateFailed || run.FailedStage != StageChunking {
		t.Errorf("expected Failed(chunking), got %s(%s)", run.State, run.FailedStage)
	}
	if apperrors.CodeOf(err) != apperrors.ErrCodeUnsupportedFormat {
		t.Errorf("error code = %v", apperrors.CodeOf(err))
	}
	if got := stt.calls.Load(); got != 0 {
		t.Errorf("no network call expected, got %d", got)
	}
	assertNoReports(t, outDir)
}

func TestProcessTranscriptionFailure(t *testing.T) {
	stt := &stubSTT{err: apperrors.TranscriptionFailed("provider down")}
	o, outDir := newTestOrchestrator(t, stt, &stubLLM{response: validSoapJSON},
		render.NewRenderer(nil, render.FormatMarkdown), 1<<20, 1)

	input := writeAudio(t, "session.wav", 4000)
	run, err := o.Process(context.Background(), input, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if run.FailedStage != StageTranscribing {
		t.Errorf("failed stage = %s", run.FailedStage)
	}
	assertNoReports(t, outDir)
}

func TestProcessExtractionFailure(t *testing.T) {
	o, outDir := newTestOrchestrator(t, &stubSTT{}, &stubLLM{response: "not valid json"},
		render.NewRenderer(nil, render.FormatMarkdown), 1<<20, 1)

	input := writeAudio(t, "session.wav", 4000)
	run, err := o.Process(context.Background(), input, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if run.FailedStage != StageExtracting {
		t.Errorf("failed stage = %s", run.FailedStage)
	}
	if apperrors.CodeOf(err) != apperrors.ErrCodeExtractionFailed {
		t.Errorf("error code = %v", apperrors.CodeOf(err))
	}
	assertNoReports(t, outDir)
}

func TestProcessRenderFailureWritesNothing(t *testing.T) {
	o, outDir := newTestOrchestrator(t, &stubSTT{}, &stubLLM{response: validSoapJSON},
		render.NewRenderer(failingEngine{}, render.FormatPDF), 1<<20, 1)

	input := writeAudio(t, "session.wav", 4000)
	run, err := o.Process(context.Background(), input, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if run.FailedStage != StageRendering {
		t.Errorf("failed stage = %s", run.FailedStage)
	}
	if apperrors.CodeOf(err) != apperrors.ErrCodeRenderFailed {
		t.Errorf("error code = %v", apperrors.CodeOf(err))
	}
	assertNoReports(t, outDir)
}

func TestProcessReassemblesSegmentsInOrder(t *testing.T) {
	stt := &stubSTT{delayByIndex: true}
	// mp3 avoids header-aware splitting; 5000 bytes over a 1500 byte
	// threshold yields 4 segments.
	o, _ := newTestOrchestrator(t, stt, &stubLLM{response: validSoapJSON},
		render.NewRenderer(nil, render.FormatMarkdown), 1500, 3)

	input := writeAudio(t, "session.mp3", 5000)
	run, err := o.Process(context.Background(), input, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stt.calls.Load(); got != 4 {
		t.Errorf("expected 4 transcription calls, got %d", got)
	}

	full := run.Transcript.FullText()
	last := -1
	for _, seg := range run.Transcript.Segments() {
		if seg.Index <= last {
			t.Errorf("segment order broken at index %d", seg.Index)
		}
		last = seg.Index
	}
	if !strings.HasPrefix(full, "segment 000") {
		t.Errorf("transcript should start with the first segment, got %q", full[:40])
	}
	if strings.Index(full, "segment 003") < strings.Index(full, "segment 001") {
		t.Error("later segments must follow earlier ones in the full text")
	}
}

func TestConcurrentRunsShareTranscribeCap(t *testing.T) {
	stt := &stubSTT{holdEach: 10 * time.Millisecond}
	// Two runs of 4 segments each share one orchestrator configured for 2
	// workers. The bulkhead must keep total in-flight calls at 2 even
	// though the runs together start 4 workers.
	o, _ := newTestOrchestrator(t, stt, &stubLLM{response: validSoapJSON},
		render.NewRenderer(nil, render.FormatMarkdown), 1500, 2)

	inputs := []string{
		writeAudio(t, "morning.mp3", 5000),
		writeAudio(t, "afternoon.mp3", 5000),
	}
	errs := make(chan error, len(inputs))
	for _, input := range inputs {
		go func(path string) {
			_, err := o.Process(context.Background(), path, "")
			errs <- err
		}(input)
	}
	for range inputs {
		if err := <-errs; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := stt.calls.Load(); got != 8 {
		t.Errorf("expected 8 transcription calls, got %d", got)
	}
	if peak := stt.peak.Load(); peak > 2 {
		t.Errorf("in-flight transcriptions peaked at %d, cap is 2", peak)
	}
}

func TestProcessCancellation(t *testing.T) {
	o, outDir := newTestOrchestrator(t, &stubSTT{}, &stubLLM{response: validSoapJSON},
		render.NewRenderer(nil, render.FormatMarkdown), 1<<20, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := writeAudio(t, "session.wav", 4000)
	run, err := o.Process(ctx, input, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if run.State != StateFailed {
		t.Errorf("state = %s", run.State)
	}
	assertNoReports(t, outDir)
}

func assertNoReports(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no output files, found %d", len(entries))
	}
}
