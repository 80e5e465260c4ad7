package pipeline

// State is the lifecycle position of a Pipeline.
type State int

const (
	Uninitialized State = iota
	ModelLoaded
	ScalerLoaded
	Streaming
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ModelLoaded:
		return "model_loaded"
	case ScalerLoaded:
		return "scaler_loaded"
	case Streaming:
		return "streaming"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
