package detection

// CutList is the complete result of one detection run over a video
type CutList struct {
	Cuts     []int   `json:"cuts"`
	Terminal int     `json:"terminal"`
	FPS      float64 `json:"fps"`
}

// CutCache stores finished cut lists keyed by video file and detection settings.
// This is a port that can be implemented by different storage backends
type CutCache interface {
	// Lookup returns the cached cut list for the file and settings, if any
	Lookup(path, settings string) (CutList, bool, error)

	// Store records a cut list for the file and settings
	Store(path, settings string, list CutList) error
}
