package detection

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	domain "face-scenes/domain/detection"
	"face-scenes/domain/video"
)

// DetectorFactory builds a fresh set of cut detectors for one run
type DetectorFactory func() ([]domain.CutDetector, error)

// Service turns videos into scene lists
type Service struct {
	opener    video.SourceOpener
	detectors DetectorFactory
	cache     domain.CutCache
	logger    *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithCutCache reuses cut lists from earlier complete runs
func WithCutCache(cache domain.CutCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithServiceLogger sets the logger
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new detection service
func NewService(opener video.SourceOpener, detectors DetectorFactory, opts ...ServiceOption) *Service {
	s := &Service{
		opener:    opener,
		detectors: detectors,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SceneRequest describes one scene detection run
type SceneRequest struct {
	InputPath string
	Options   Options

	// SceneProgress is called after each scene with (scene end frame, frame count)
	SceneProgress func(done, total int)
}

// Scenes yields the scenes of a video in order. The sequence opens its own
// source and stops decoding as soon as the consumer stops iterating.
func (s *Service) Scenes(ctx context.Context, req SceneRequest) iter.Seq2[video.Scene, error] {
	return func(yield func(video.Scene, error) bool) {
		src, err := s.opener.Open(req.InputPath)
		if err != nil {
			yield(video.Scene{}, fmt.Errorf("failed to open video: %w", err))
			return
		}
		defer src.Close()

		detectors, err := s.detectors()
		if err != nil {
			yield(video.Scene{}, fmt.Errorf("failed to create detectors: %w", err))
			return
		}
		if err := req.Options.Validate(detectors); err != nil {
			yield(video.Scene{}, err)
			return
		}

		settings := s.settings(detectors, req.Options)
		if list, ok := s.lookup(req.InputPath, settings); ok {
			s.yieldCached(list, req, yield)
			return
		}

		stream, err := NewPipeline(detectors, WithLogger(s.logger)).Start(ctx, src, req.Options)
		if err != nil {
			yield(video.Scene{}, err)
			return
		}
		defer stream.Close()

		total := src.FrameCount()
		fps := src.FPS()
		prev := stream.StartFrame()
		var cuts []int
		for stream.Next() {
			cut := stream.Cut()
			cuts = append(cuts, cut)
			if !yield(video.Scene{StartFrame: prev, EndFrame: cut, FPS: fps}, nil) {
				return
			}
			if req.SceneProgress != nil {
				req.SceneProgress(cut, max(total, cut))
			}
			prev = cut
		}
		if err := stream.Err(); err != nil {
			yield(video.Scene{}, err)
			return
		}

		if req.SceneProgress != nil {
			req.SceneProgress(max(total, stream.Terminal()), max(total, stream.Terminal()))
		}
		s.logger.Info("scene detection finished",
			zap.String("input", req.InputPath),
			zap.Int("scenes", len(cuts)),
			zap.Int("terminal_frame", stream.Terminal()))

		if stream.StartFrame() == 0 {
			s.store(req.InputPath, settings, domain.CutList{Cuts: cuts, Terminal: stream.Terminal(), FPS: fps})
		}
	}
}

// DetectScenes collects every scene of a video
func (s *Service) DetectScenes(ctx context.Context, req SceneRequest) ([]video.Scene, error) {
	var scenes []video.Scene
	for scene, err := range s.Scenes(ctx, req) {
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

func (s *Service) yieldCached(list domain.CutList, req SceneRequest, yield func(video.Scene, error) bool) {
	s.logger.Info("using cached cut list", zap.String("input", req.InputPath), zap.Int("cuts", len(list.Cuts)))

	prev := 0
	for _, cut := range list.Cuts {
		if !yield(video.Scene{StartFrame: prev, EndFrame: cut, FPS: list.FPS}, nil) {
			return
		}
		if req.SceneProgress != nil {
			req.SceneProgress(cut, list.Terminal)
		}
		prev = cut
	}
	if req.SceneProgress != nil {
		req.SceneProgress(list.Terminal, list.Terminal)
	}
}

func (s *Service) lookup(path, settings string) (domain.CutList, bool) {
	if s.cache == nil {
		return domain.CutList{}, false
	}
	list, ok, err := s.cache.Lookup(path, settings)
	if err != nil {
		s.logger.Warn("cut cache lookup failed", zap.String("input", path), zap.Error(err))
		return domain.CutList{}, false
	}
	return list, ok
}

func (s *Service) store(path, settings string, list domain.CutList) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Store(path, settings, list); err != nil {
		s.logger.Warn("cut cache store failed", zap.String("input", path), zap.Error(err))
	}
}

// settings renders everything that influences the cut list into a cache key component
func (s *Service) settings(detectors []domain.CutDetector, opts Options) string {
	parts := make([]string, 0, len(detectors)+4)
	for _, d := range detectors {
		parts = append(parts, detectorName(d))
	}
	parts = append(parts,
		fmt.Sprintf("skip=%d", opts.FrameSkip),
		fmt.Sprintf("downscale=%d", opts.Downscale))
	if opts.Duration != nil {
		parts = append(parts, fmt.Sprintf("duration=%s", *opts.Duration))
	}
	if opts.EndTime != nil {
		parts = append(parts, fmt.Sprintf("end=%s", *opts.EndTime))
	}
	return strings.Join(parts, ";")
}
