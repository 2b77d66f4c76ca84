package detection

import "face-scenes/domain/video"

// DefaultTolerance is the maximum descriptor distance treated as the same person
const DefaultTolerance = 0.7

// DefaultFrequency samples every tenth frame of a scene
const DefaultFrequency = 10

// DefaultQuality halves frame dimensions before face encoding
const DefaultQuality = 0.5

// MatchOptions controls how scenes are sampled for the reference face
type MatchOptions struct {
	Tolerance float64
	Frequency int
	Quality   float64
}

// DefaultMatchOptions returns the documented defaults
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		Tolerance: DefaultTolerance,
		Frequency: DefaultFrequency,
		Quality:   DefaultQuality,
	}
}

// Validate rejects non-positive values and qualities outside (0, 1]
func (o MatchOptions) Validate() error {
	if o.Tolerance <= 0 {
		return &ConfigError{Option: "tolerance", Reason: "must be positive"}
	}
	if o.Frequency <= 0 {
		return &ConfigError{Option: "frequency", Reason: "must be positive"}
	}
	if o.Quality <= 0 || o.Quality > 1 {
		return &ConfigError{Option: "quality", Reason: "must be in (0, 1]"}
	}
	return nil
}

// MatchResult is the decision reached for one scene
type MatchResult struct {
	Scene          video.Scene
	Matched        bool
	MatchedFrame   int
	SamplesChecked int
	// BestDistance is the smallest distance seen, or -1 when no face was found
	BestDistance float64
}
