package workflow

// State is a pipeline run's position in the stage sequence.
type State string

const (
	StateIdle         State = "idle"
	StateChunking     State = "chunking"
	StateTranscribing State = "transcribing"
	StateExtracting   State = "extracting"
	StateRendering    State = "rendering"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// nextStates maps each state to the states it may move to. Failed is
// reachable from every non-terminal state.
var nextStates = map[State][]State{
	StateIdle:         {StateChunking, StateFailed},
	StateChunking:     {StateTranscribing, StateFailed},
	StateTranscribing: {StateExtracting, StateFailed},
	StateExtracting:   {StateRendering, StateFailed},
	StateRendering:    {StateDone, StateFailed},
}

// canTransition reports whether moving from one state to another is legal.
func canTransition(from, to State) bool {
	for _, s := range nextStates[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the state ends the run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Stage names the pipeline stage an error originated from.
type Stage string

const (
	StageChunking     Stage = "chunking"
	StageTranscribing Stage = "transcribing"
	StageExtracting   Stage = "extracting"
	StageRendering    Stage = "rendering"
)
