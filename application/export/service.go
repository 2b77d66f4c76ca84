package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"go.uber.org/zap"

	"face-scenes/domain/export"
	"face-scenes/domain/video"
)

// Service writes scenes out as standalone clips with audio
type Service struct {
	opener     video.SourceOpener
	writers    export.WriterFactory
	transcoder export.Transcoder
	workspace  export.Workspace
	logger     *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new export service
func NewService(
	opener video.SourceOpener,
	writers export.WriterFactory,
	transcoder export.Transcoder,
	workspace export.Workspace,
	opts ...Option,
) *Service {
	s := &Service{
		opener:     opener,
		writers:    writers,
		transcoder: transcoder,
		workspace:  workspace,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request describes one export batch
type Request struct {
	SourcePath string
	Scenes     []video.Scene
	Dir        string

	// Progress is called after every scene with (scenes done, scene count)
	Progress func(done, total int)
}

// CheckDirectory fails with FilesAlreadyExistError when dir holds files an export would write
func (s *Service) CheckDirectory(dir string) error {
	existing, err := s.workspace.Matching(dir, export.OutputPattern)
	if err != nil {
		return fmt.Errorf("failed to inspect output directory: %w", err)
	}
	if len(existing) > 0 {
		return &export.FilesAlreadyExistError{Dir: dir, Files: existing}
	}
	return nil
}

// Write exports every scene in order as scene_<n>.mp4 inside req.Dir.
// Per-scene failures are recorded in the report and the batch continues;
// the returned error covers preconditions and cancellation only.
func (s *Service) Write(ctx context.Context, req Request) (*export.Report, error) {
	if err := s.CheckDirectory(req.Dir); err != nil {
		return nil, err
	}
	if err := s.workspace.Ensure(req.Dir); err != nil {
		return nil, err
	}

	unlock, err := s.workspace.Lock(req.Dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			s.logger.Warn("failed to release output directory lock", zap.Error(err))
		}
	}()

	// another process may have written between the first check and the lock
	if err := s.CheckDirectory(req.Dir); err != nil {
		return nil, err
	}

	src, err := s.opener.Open(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer src.Close()

	report := &export.Report{Dir: req.Dir}
	for i, scene := range req.Scenes {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome := s.exportScene(ctx, src, req.SourcePath, i+1, scene, req.Dir)
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Warn("scene export abandoned",
				zap.Int("scene", i+1),
				zap.Stringer("range", scene),
				zap.Error(outcome.Err))
		} else {
			s.logger.Info("scene exported",
				zap.Int("scene", i+1),
				zap.Stringer("range", scene),
				zap.String("path", outcome.OutputPath),
				zap.Int("frames", outcome.Frames))
		}

		if req.Progress != nil {
			req.Progress(i+1, len(req.Scenes))
		}
	}
	return report, nil
}

func (s *Service) exportScene(ctx context.Context, src video.FrameSource, sourcePath string, number int, scene video.Scene, dir string) export.Outcome {
	job, err := export.NewJob(number, scene, dir)
	if err != nil {
		return export.Outcome{Err: err}
	}
	outcome := export.Outcome{Job: job}

	// Temporaries go whether the scene succeeds or is abandoned
	defer func() {
		for _, tmp := range []string{job.VideoTempPath(), job.AudioTempPath()} {
			if err := s.workspace.Remove(tmp); err != nil {
				s.logger.Warn("failed to remove temporary file", zap.String("path", tmp), zap.Error(err))
			}
		}
	}()

	// Step 1: video-only temp file
	frames, err := s.writeVideo(src, job)
	outcome.Frames = frames
	if err != nil {
		outcome.Err = fmt.Errorf("failed to write video: %w", err)
		return outcome
	}

	// Step 2: audio span from the original source
	if err := s.transcoder.ExtractAudio(ctx, sourcePath, scene.Start(), scene.End(), job.AudioTempPath()); err != nil {
		outcome.Err = fmt.Errorf("failed to extract audio: %w", err)
		return outcome
	}

	// Step 3: combine into the numbered clip
	if err := s.transcoder.Mux(ctx, job.VideoTempPath(), job.AudioTempPath(), job.OutputPath()); err != nil {
		outcome.Err = fmt.Errorf("failed to combine video and audio: %w", err)
		s.discard(job.OutputPath())
		return outcome
	}

	if !s.workspace.Exists(job.OutputPath()) {
		outcome.Err = fmt.Errorf("mux reported success but %s is missing", job.OutputFilename())
		return outcome
	}

	outcome.OutputPath = job.OutputPath()
	return outcome
}

// writeVideo copies the scene's frames into the job's temporary video file.
// A source ending early truncates the scene; any other read error abandons it.
func (s *Service) writeVideo(src video.FrameSource, job *export.Job) (int, error) {
	// Re-seek; the source may still be positioned at the previous scene
	scene := job.Scene
	if err := src.Seek(scene.StartFrame); err != nil {
		return 0, fmt.Errorf("failed to seek to frame %d: %w", scene.StartFrame, err)
	}

	var (
		writer  export.FrameWriter
		written int
	)
	closeWriter := func() error {
		if writer == nil {
			return nil
		}
		err := writer.Close()
		writer = nil
		return err
	}
	defer closeWriter()

	for frame := scene.StartFrame; frame < scene.EndFrame; frame++ {
		img, err := src.Read()
		if errors.Is(err, io.EOF) {
			if written == 0 {
				return 0, fmt.Errorf("scene starts at frame %d: %w", frame, video.ErrNoFrames)
			}
			s.logger.Warn("video ended inside scene, clip truncated",
				zap.Int("scene", job.Number),
				zap.Int("expected_end", scene.EndFrame),
				zap.Int("actual_end", frame))
			break
		}
		if err != nil {
			return written, fmt.Errorf("failed to read frame %d: %w", frame, err)
		}

		// The writer is sized from the first frame actually read
		if writer == nil {
			writer, err = s.createWriter(job, scene.FPS, img)
			if err != nil {
				return 0, err
			}
		}
		if err := writer.Write(img); err != nil {
			return written, fmt.Errorf("failed to encode frame %d: %w", frame, err)
		}
		written++
	}

	// Flush the encoder so the temp file is complete before muxing
	if err := closeWriter(); err != nil {
		return written, fmt.Errorf("failed to finish %s: %w", job.VideoTempPath(), err)
	}
	return written, nil
}

func (s *Service) createWriter(job *export.Job, fps float64, first image.Image) (export.FrameWriter, error) {
	b := first.Bounds()
	w, err := s.writers.Create(job.VideoTempPath(), fps, b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", job.VideoTempPath(), err)
	}
	return w, nil
}

func (s *Service) discard(path string) {
	if err := s.workspace.Remove(path); err != nil {
		s.logger.Warn("failed to remove partial output", zap.String("path", path), zap.Error(err))
	}
}
