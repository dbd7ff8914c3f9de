package workflow

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/physiolab/soapnote/internal/audio"
	apperrors "github.com/physiolab/soapnote/internal/errors"
	"github.com/physiolab/soapnote/internal/extraction"
	"github.com/physiolab/soapnote/internal/logger"
	"github.com/physiolab/soapnote/internal/observability"
	"github.com/physiolab/soapnote/internal/provider"
	"github.com/physiolab/soapnote/internal/render"
	"github.com/physiolab/soapnote/internal/resilience"
	"github.com/physiolab/soapnote/internal/storage"
	"github.com/physiolab/soapnote/internal/transcription"
)

// Options tunes orchestrator behavior.
type Options struct {
	// TranscribeWorkers bounds concurrent segment transcriptions. Values
	// below 1 run segments sequentially.
	TranscribeWorkers int
	// Language hints the expected audio language to the transcriber.
	Language string
	// Now supplies the report generation timestamp. Defaults to time.Now;
	// tests inject a fixed clock for deterministic output.
	Now func() time.Time
}

// Orchestrator drives one audio file through the full pipeline.
type Orchestrator struct {
	chunker   *audio.Chunker
	stt       transcription.Provider
	extractor *extraction.Extractor
	renderer  *render.Renderer
	store     storage.Store
	log       *logger.Logger
	opts      Options

	// sttBulkhead caps in-flight transcription requests across all runs
	// sharing this orchestrator, not just within one run's worker pool.
	sttBulkhead *resilience.Bulkhead
}

// New wires an orchestrator from its stage clients.
func New(chunker *audio.Chunker, stt transcription.Provider, extractor *extraction.Extractor,
	renderer *render.Renderer, store storage.Store, log *logger.Logger, opts Options) *Orchestrator {
	if opts.TranscribeWorkers < 1 {
		opts.TranscribeWorkers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Orchestrator{
		chunker:   chunker,
		stt:       stt,
		extractor: extractor,
		renderer:  renderer,
		store:     store,
		log:       log.WithComponent("workflow"),
		opts:      opts,
		sttBulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "transcribe",
			MaxConcurrent: opts.TranscribeWorkers,
			MaxWait:       10 * time.Minute,
		}),
	}
}

// Process runs the pipeline on one audio file. outputName overrides the
// derived report file name; empty uses SOAP_<patient>_<timestamp>. The
// returned run always reports the terminal state; the error mirrors run.Err
// for Failed runs. No output file exists unless the run is Done.
func (o *Orchestrator) Process(ctx context.Context, inputPath, outputName string) (*PipelineRun, error) {
	run := newRun(inputPath, o.opts.Now)
	ctx = logger.ContextWithRunID(ctx, run.ID)
	log := o.log.WithRun(run.ID)

	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
	defer span.End()

	log.Info("pipeline run started", logger.Fields("input", inputPath))

	// Chunking
	if err := run.enter(StateChunking, StageChunking); err != nil {
		return run, err
	}
	segments, err := o.chunker.Chunk(inputPath)
	if err != nil {
		return o.failRun(ctx, run, log, StageChunking, err)
	}
	run.leave(StageChunking)

	// Transcribing
	if err := run.enter(StateTranscribing, StageTranscribing); err != nil {
		segments.Close()
		return run, err
	}
	transcribed, err := o.transcribeAll(ctx, segments)
	if err != nil {
		return o.failRun(ctx, run, log, StageTranscribing, err)
	}
	transcript, err := transcription.NewTranscript(transcribed)
	if err != nil {
		return o.failRun(ctx, run, log, StageTranscribing, apperrors.TranscriptionFailed(err.Error()))
	}
	run.Transcript = transcript
	run.leave(StageTranscribing)
	log.Info("transcription complete", logger.Fields(
		"segments", transcript.Len(),
		"transcript_chars", len(transcript.FullText()),
	))

	// Extracting
	if err := run.enter(StateExtracting, StageExtracting); err != nil {
		return run, err
	}
	record, err := o.extractor.Extract(ctx, transcript.FullText())
	if err != nil {
		return o.failRun(ctx, run, log, StageExtracting, err)
	}
	run.Record = record
	run.leave(StageExtracting)

	// Rendering
	if err := run.enter(StateRendering, StageRendering); err != nil {
		return run, err
	}
	doc := render.Document{Record: record, GeneratedAt: o.opts.Now()}
	data, err := o.renderer.Render(ctx, doc)
	if err != nil {
		return o.failRun(ctx, run, log, StageRendering, err)
	}
	outputPath, err := o.store.Save(ctx, o.outputFileName(doc, outputName), data)
	if err != nil {
		return o.failRun(ctx, run, log, StageRendering, apperrors.RenderFailed("write report").WithCause(err))
	}
	run.leave(StageRendering)

	run.complete(outputPath)
	log.Info("pipeline run done", logger.Fields("output", outputPath))
	return run, nil
}

// outputFileName applies the caller override or derives the default name,
// always carrying the renderer's extension.
func (o *Orchestrator) outputFileName(doc render.Document, override string) string {
	ext := o.renderer.Format().Extension()
	if override == "" {
		return render.OutputFileName(doc, ext)
	}
	if !strings.HasSuffix(override, "."+ext) {
		return override + "." + ext
	}
	return override
}

// transcribeAll drains the segment iterator through a bounded worker pool
// and returns the results sorted by segment index. Each call passes through
// the shared bulkhead, so total in-flight requests stay capped even when
// several runs execute concurrently. The first failure cancels the
// remaining work.
func (o *Orchestrator) transcribeAll(ctx context.Context, it provider.Iterator[audio.Segment]) ([]transcription.Segment, error) {
	defer it.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		iterMu   sync.Mutex
		outMu    sync.Mutex
		wg       sync.WaitGroup
		results  []transcription.Segment
		firstErr error
	)
	fail := func(err error) {
		outMu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		outMu.Unlock()
	}

	for w := 0; w < o.opts.TranscribeWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				iterMu.Lock()
				seg, ok, err := it.Next(ctx)
				iterMu.Unlock()
				if err != nil {
					fail(err)
					return
				}
				if !ok {
					return
				}

				resp, err := resilience.ExecuteWithResult(ctx, o.sttBulkhead, func() (*transcription.Response, error) {
					return o.stt.Transcribe(ctx, transcription.Request{
						Data:     seg.Data,
						FileName: seg.FileName(),
						MIMEType: audio.MIMEType(seg.Format),
						Language: o.opts.Language,
					})
				})
				if err != nil {
					fail(err)
					return
				}

				outMu.Lock()
				results = append(results, transcription.Segment{
					Index:              seg.Index,
					AudioOffsetSeconds: seg.OffsetSeconds,
					Text:               resp.Text,
				})
				outMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results, nil
}

// failRun finalizes a failed run with its originating stage.
func (o *Orchestrator) failRun(ctx context.Context, run *PipelineRun, log *logger.Logger, stage Stage, err error) (*PipelineRun, error) {
	run.fail(stage, err)
	observability.SetSpanError(ctx, err)
	log.WithError(err).Error("pipeline run failed", logger.Fields(
		logger.FieldStage, string(stage),
		"error_code", string(apperrors.CodeOf(err)),
	))
	return run, err
}
