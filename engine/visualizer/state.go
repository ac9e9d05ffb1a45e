package visualizer

// State is the lifecycle state of the visualizer.
type State int

const (
	// StateIdle means no dataset is selected and nothing is rendered.
	StateIdle State = iota
	// StateLoading means the coordinates and the atlas of the selected dataset are being fetched.
	StateLoading
	// StateReady means the dataset is displayed and the render loop runs.
	StateReady
	// StateFailed means the last selection could not be displayed, or its render loop stopped
	// on an error. The scene is empty.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transition describes a state change reported to the state callback.
type Transition struct {
	From    State
	To      State
	Dataset string
	// Generation identifies the selection that caused the change.
	Generation uint64
	// Err is set when To is StateFailed.
	Err error
}
