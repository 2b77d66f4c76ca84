package detection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"go.uber.org/zap"

	domain "face-scenes/domain/detection"
	"face-scenes/domain/video"
	"face-scenes/infrastructure/imgproc"
)

// SceneFilter keeps the scenes in which the reference face appears
type SceneFilter struct {
	source    video.FrameSource
	encoder   domain.FaceEncoder
	reference domain.Descriptor
	opts      domain.MatchOptions
	logger    *zap.Logger
	onResult  func(domain.MatchResult)
}

// FilterOption configures a SceneFilter
type FilterOption func(*SceneFilter)

// WithFilterLogger sets the logger
func WithFilterLogger(logger *zap.Logger) FilterOption {
	return func(f *SceneFilter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithResultHook is called with the decision for every evaluated scene
func WithResultHook(hook func(domain.MatchResult)) FilterOption {
	return func(f *SceneFilter) {
		f.onResult = hook
	}
}

// NewSceneFilter validates opts and creates a filter sampling from source.
// The source should be a handle of its own; the filter seeks it freely.
func NewSceneFilter(
	source video.FrameSource,
	encoder domain.FaceEncoder,
	reference domain.Descriptor,
	opts domain.MatchOptions,
	options ...FilterOption,
) (*SceneFilter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(reference) == 0 {
		return nil, &domain.ConfigError{Option: "reference", Reason: "descriptor is empty"}
	}
	f := &SceneFilter{
		source:    source,
		encoder:   encoder,
		reference: reference,
		opts:      opts,
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// Match samples every Frequency-th frame of scene and stops at the first face
// within Tolerance of the reference. A scene the source cannot read to the end
// of is rejected with what was sampled so far.
func (f *SceneFilter) Match(ctx context.Context, scene video.Scene) (domain.MatchResult, error) {
	result := domain.MatchResult{Scene: scene, MatchedFrame: -1, BestDistance: -1}

	for frame := scene.StartFrame; frame < scene.EndFrame; frame += f.opts.Frequency {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := f.moveTo(frame); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return result, fmt.Errorf("failed to seek to frame %d: %w", frame, err)
		}

		img, err := f.source.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				f.logger.Warn("frame read failed, rejecting rest of scene",
					zap.Int("frame", frame),
					zap.Stringer("scene", scene),
					zap.Error(err))
			}
			break
		}

		faces, err := f.encoder.Encode(imgproc.Scale(img, f.opts.Quality))
		if err != nil {
			return result, fmt.Errorf("failed to encode faces at frame %d: %w", frame, err)
		}
		result.SamplesChecked++

		for _, face := range faces {
			distance, err := domain.Distance(f.reference, face)
			if err != nil {
				return result, fmt.Errorf("failed to compare face at frame %d: %w", frame, err)
			}
			if result.BestDistance < 0 || distance < result.BestDistance {
				result.BestDistance = distance
			}
			if distance <= f.opts.Tolerance {
				result.Matched = true
				result.MatchedFrame = frame
				return result, nil
			}
		}
	}

	return result, nil
}

// moveTo positions the source at frame, grabbing forward for short hops
func (f *SceneFilter) moveTo(frame int) error {
	pos := f.source.Position()
	if pos == frame {
		return nil
	}
	if pos < frame && frame-pos <= f.opts.Frequency {
		for ; pos < frame; pos++ {
			if err := f.source.Grab(); err != nil {
				return err
			}
		}
		return nil
	}
	return f.source.Seek(frame)
}

// Relevant yields the scenes of the input sequence that contain the reference face,
// in input order. Errors from the input or from matching end the sequence.
func (f *SceneFilter) Relevant(ctx context.Context, scenes iter.Seq2[video.Scene, error]) iter.Seq2[video.Scene, error] {
	return func(yield func(video.Scene, error) bool) {
		for scene, err := range scenes {
			if err != nil {
				yield(video.Scene{}, err)
				return
			}

			result, err := f.Match(ctx, scene)
			if err != nil {
				yield(video.Scene{}, fmt.Errorf("failed to match scene %s: %w", scene, err))
				return
			}
			f.report(result)

			if result.Matched {
				if !yield(scene, nil) {
					return
				}
			}
		}
	}
}

// RelevantScenes filters a precomputed scene list
func (f *SceneFilter) RelevantScenes(ctx context.Context, scenes []video.Scene) ([]video.Scene, error) {
	var relevant []video.Scene
	for scene, err := range f.Relevant(ctx, sliceSeq(scenes)) {
		if err != nil {
			return nil, err
		}
		relevant = append(relevant, scene)
	}
	return relevant, nil
}

func (f *SceneFilter) report(result domain.MatchResult) {
	f.logger.Debug("scene evaluated",
		zap.Stringer("scene", result.Scene),
		zap.Bool("matched", result.Matched),
		zap.Int("samples", result.SamplesChecked),
		zap.Float64("best_distance", result.BestDistance))
	if f.onResult != nil {
		f.onResult(result)
	}
}

func sliceSeq(scenes []video.Scene) iter.Seq2[video.Scene, error] {
	return func(yield func(video.Scene, error) bool) {
		for _, s := range scenes {
			if !yield(s, nil) {
				return
			}
		}
	}
}
