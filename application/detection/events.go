package detection

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	domain "face-scenes/domain/detection"
	"face-scenes/domain/video"
)

// EventFactory builds event detectors for a source with the given frame size
type EventFactory func(width, height int) ([]domain.EventDetector, error)

// DetectWithEvents runs one uncached pass collecting the scenes together with
// the events reported by the detectors events builds. Events of the same label
// that touch or are separated only by skipped frames are merged.
func (s *Service) DetectWithEvents(ctx context.Context, req SceneRequest, events EventFactory) ([]video.Scene, []domain.Event, error) {
	src, err := s.opener.Open(req.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer src.Close()

	detectors, err := s.detectors()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create detectors: %w", err)
	}
	if err := req.Options.Validate(detectors); err != nil {
		return nil, nil, err
	}

	width, height := src.Size()
	markers, err := events(width, height)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create event detectors: %w", err)
	}
	defer closeAll(markers)

	opts := []PipelineOption{WithLogger(s.logger)}
	for _, m := range markers {
		opts = append(opts, WithEventDetector(m))
	}
	stream, err := NewPipeline(detectors, opts...).Start(ctx, src, req.Options)
	if err != nil {
		return nil, nil, err
	}
	cuts, err := stream.Collect()
	if err != nil {
		return nil, nil, err
	}

	fps := src.FPS()
	scenes := make([]video.Scene, 0, len(cuts))
	prev := stream.StartFrame()
	for _, cut := range cuts {
		scenes = append(scenes, video.Scene{StartFrame: prev, EndFrame: cut, FPS: fps})
		prev = cut
	}
	found := MergeEvents(stream.Events(), req.Options.FrameSkip)

	s.logger.Info("event detection finished",
		zap.String("input", req.InputPath),
		zap.Int("scenes", len(scenes)),
		zap.Int("events", len(found)))
	return scenes, found, nil
}

// MergeEvents joins events of the same label whose gap is at most gap frames.
// The result is ordered by start frame, then label.
func MergeEvents(events []domain.Event, gap int) []domain.Event {
	if len(events) == 0 {
		return nil
	}
	sorted := append([]domain.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Label != sorted[j].Label {
			return sorted[i].Label < sorted[j].Label
		}
		return sorted[i].StartFrame < sorted[j].StartFrame
	})

	merged := []domain.Event{sorted[0]}
	for _, e := range sorted[1:] {
		last := &merged[len(merged)-1]
		if e.Label == last.Label && e.StartFrame <= last.EndFrame+gap {
			last.EndFrame = max(last.EndFrame, e.EndFrame)
			continue
		}
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].StartFrame != merged[j].StartFrame {
			return merged[i].StartFrame < merged[j].StartFrame
		}
		return merged[i].Label < merged[j].Label
	})
	return merged
}

func closeAll(detectors []domain.EventDetector) {
	for _, d := range detectors {
		if c, ok := d.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
