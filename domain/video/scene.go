package video

import (
	"fmt"
	"time"
)

// Scene is the half-open frame interval [StartFrame, EndFrame) between two cuts
type Scene struct {
	StartFrame int
	EndFrame   int
	FPS        float64
}

// NewScene validates and builds a Scene
func NewScene(startFrame, endFrame int, fps float64) (Scene, error) {
	s := Scene{StartFrame: startFrame, EndFrame: endFrame, FPS: fps}
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	return s, nil
}

// Validate checks that the scene is a non-empty interval with a usable frame rate
func (s Scene) Validate() error {
	if s.FPS <= 0 {
		return fmt.Errorf("scene fps must be positive, got %v", s.FPS)
	}
	if s.StartFrame < 0 {
		return fmt.Errorf("scene start frame must not be negative, got %d", s.StartFrame)
	}
	if s.EndFrame <= s.StartFrame {
		return fmt.Errorf("scene end frame %d must be after start frame %d", s.EndFrame, s.StartFrame)
	}
	return nil
}

// Start returns the scene start time
func (s Scene) Start() time.Duration {
	return FrameTime(s.StartFrame, s.FPS)
}

// End returns the scene end time (exclusive)
func (s Scene) End() time.Duration {
	return FrameTime(s.EndFrame, s.FPS)
}

// Length returns the number of frames in the scene
func (s Scene) Length() int {
	return s.EndFrame - s.StartFrame
}

// Duration returns End - Start
func (s Scene) Duration() time.Duration {
	return s.End() - s.Start()
}

// String renders the scene as "HH:MM:SS.mmm-HH:MM:SS.mmm"
func (s Scene) String() string {
	return FormatTimecode(s.Start()) + "-" + FormatTimecode(s.End())
}

// ScenesFromCuts turns an ascending list of cut frames into contiguous scenes
// covering [0, total). The final entry of cuts may equal total.
func ScenesFromCuts(cuts []int, total int, fps float64) ([]Scene, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %v", fps)
	}

	var scenes []Scene
	start := 0
	for i, cut := range cuts {
		if cut <= start {
			return nil, fmt.Errorf("cut %d at frame %d is not after frame %d", i, cut, start)
		}
		if cut > total {
			return nil, fmt.Errorf("cut %d at frame %d is beyond the last frame %d", i, cut, total)
		}
		scenes = append(scenes, Scene{StartFrame: start, EndFrame: cut, FPS: fps})
		start = cut
	}
	if start < total {
		scenes = append(scenes, Scene{StartFrame: start, EndFrame: total, FPS: fps})
	}
	return scenes, nil
}
