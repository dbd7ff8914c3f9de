package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/physiolab/soapnote/internal/soap"
	"github.com/physiolab/soapnote/internal/transcription"
)

// StageTiming records when a stage started and ended.
type StageTiming struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the stage's elapsed time.
func (t StageTiming) Duration() time.Duration { return t.End.Sub(t.Start) }

// PipelineRun is the correlation context for one pipeline invocation. It
// exists only for the duration of the run and is not persisted.
type PipelineRun struct {
	// ID correlates log lines and spans for this run.
	ID string `json:"id"`
	// InputPath is the source audio file.
	InputPath string `json:"input_path"`
	// OutputPath is the written report, set only when the run is Done.
	OutputPath string `json:"output_path,omitempty"`

	State State `json:"state"`
	// FailedStage and Err are set when State is Failed.
	FailedStage Stage `json:"failed_stage,omitempty"`
	Err         error `json:"-"`

	// Timings records per-stage start and end timestamps.
	Timings map[Stage]*StageTiming `json:"timings"`

	// Transcript and Record are intermediate results, kept for reporting.
	Transcript *transcription.Transcript `json:"-"`
	Record     *soap.Record              `json:"record,omitempty"`

	now func() time.Time
}

// newRun creates a run in the Idle state.
func newRun(inputPath string, now func() time.Time) *PipelineRun {
	if now == nil {
		now = time.Now
	}
	return &PipelineRun{
		ID:        uuid.NewString(),
		InputPath: inputPath,
		State:     StateIdle,
		Timings:   make(map[Stage]*StageTiming),
		now:       now,
	}
}

// enter moves the run into a stage and starts its timing clock.
func (r *PipelineRun) enter(state State, stage Stage) error {
	if !canTransition(r.State, state) {
		return fmt.Errorf("illegal state transition %s -> %s", r.State, state)
	}
	r.State = state
	r.Timings[stage] = &StageTiming{Start: r.now()}
	return nil
}

// leave closes the timing clock of a stage.
func (r *PipelineRun) leave(stage Stage) {
	if t, ok := r.Timings[stage]; ok {
		t.End = r.now()
	}
}

// fail moves the run to the terminal Failed state.
func (r *PipelineRun) fail(stage Stage, err error) {
	r.leave(stage)
	r.State = StateFailed
	r.FailedStage = stage
	r.Err = err
}

// complete moves the run to Done with the written report path.
func (r *PipelineRun) complete(outputPath string) {
	r.State = StateDone
	r.OutputPath = outputPath
}
