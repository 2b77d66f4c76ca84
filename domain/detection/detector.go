package detection

import (
	"image"
)

// CutDetector finds shot boundaries in a stream of frames.
// This is a port that can be implemented by different detection algorithms
type CutDetector interface {
	// ProcessFrame inspects the frame at index and returns any cut frames it
	// detected. Returned cuts must be ascending and never ahead of index.
	ProcessFrame(index int, frame image.Image) ([]int, error)

	// MaxLookahead is how many previous frames the detector may ask for
	MaxLookahead() int

	// Stateful reports whether the detector compares consecutive frames and
	// therefore cannot run with frame skipping
	Stateful() bool
}

// Event is a timestamped occurrence reported by an EventDetector
type Event struct {
	StartFrame int
	EndFrame   int
	Label      string
}

// EventDetector reports sparse events instead of cut points
type EventDetector interface {
	ProcessFrame(index int, frame image.Image) ([]Event, error)
}

// History gives detectors read access to recently processed frames
type History interface {
	// Back returns the frame processed n frames ago (0 is the current one)
	Back(n int) (image.Image, bool)
}

// HistoryAware is implemented by detectors that want the pipeline's frame history
type HistoryAware interface {
	AttachHistory(h History)
}
