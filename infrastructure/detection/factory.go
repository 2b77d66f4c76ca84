package detection

import (
	"fmt"

	"face-scenes/domain/detection"
)

// Detector names accepted by NewDetectors
const (
	Content = "content"
	Hash    = "hash"
)

// Settings selects and tunes the cut detector
type Settings struct {
	Name           string
	Threshold      float64
	MinSceneLength int
}

// NewDetectors builds a fresh detector set. Zero thresholds and lengths keep the defaults.
func NewDetectors(s Settings) ([]detection.CutDetector, error) {
	if s.Threshold < 0 {
		return nil, &detection.ConfigError{Option: "threshold", Reason: "must not be negative"}
	}
	if s.MinSceneLength < 0 {
		return nil, &detection.ConfigError{Option: "min_scene_len", Reason: "must not be negative"}
	}

	switch s.Name {
	case "", Content:
		var opts []ContentOption
		if s.Threshold > 0 {
			opts = append(opts, WithThreshold(s.Threshold))
		}
		if s.MinSceneLength > 0 {
			opts = append(opts, WithMinSceneLength(s.MinSceneLength))
		}
		return []detection.CutDetector{NewContentDetector(opts...)}, nil
	case Hash:
		var opts []HashOption
		if s.Threshold > 0 {
			opts = append(opts, WithHashThreshold(int(s.Threshold)))
		}
		if s.MinSceneLength > 0 {
			opts = append(opts, WithHashMinSceneLength(s.MinSceneLength))
		}
		return []detection.CutDetector{NewHashDetector(opts...)}, nil
	default:
		return nil, &detection.ConfigError{
			Option: "detector",
			Reason: fmt.Sprintf("unknown detector %q (expected %s or %s)", s.Name, Content, Hash),
		}
	}
}
