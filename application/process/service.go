package process

import (
	"context"
	"fmt"
	"image"
	"io"
	"iter"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	appdetection "face-scenes/application/detection"
	appexport "face-scenes/application/export"
	"face-scenes/domain/detection"
	"face-scenes/domain/distribution"
	"face-scenes/domain/export"
	"face-scenes/domain/video"
)

// SceneDetector produces the scenes of a video
type SceneDetector interface {
	Scenes(ctx context.Context, req appdetection.SceneRequest) iter.Seq2[video.Scene, error]
}

// Exporter writes scenes out as clips
type Exporter interface {
	CheckDirectory(dir string) error
	Write(ctx context.Context, req appexport.Request) (*export.Report, error)
}

// ToolChecker verifies external tools before long work starts
type ToolChecker interface {
	VerifyInstalled(ctx context.Context) error
}

// Uploader publishes exported clips
type Uploader interface {
	UploadClips(ctx context.Context, paths []string) ([]distribution.UploadResult, error)
}

// ImageLoader decodes the reference face image
type ImageLoader func(path string) (image.Image, error)

// Service orchestrates the complete face-scenes workflow
type Service struct {
	detector  SceneDetector
	opener    video.SourceOpener
	encoder   detection.FaceEncoder
	loadImage ImageLoader
	exporter  Exporter
	tools     ToolChecker
	uploader  Uploader
	logger    *zap.Logger
	output    io.Writer
}

// Option configures a Service
type Option func(*Service)

// WithUploader enables the upload step
func WithUploader(u Uploader) Option {
	return func(s *Service) {
		s.uploader = u
	}
}

// WithToolChecker verifies external tools before exporting
func WithToolChecker(t ToolChecker) Option {
	return func(s *Service) {
		s.tools = t
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new process service. opener provides the independent
// source handle the face filter samples from.
func NewService(
	detector SceneDetector,
	opener video.SourceOpener,
	encoder detection.FaceEncoder,
	loadImage ImageLoader,
	exporter Exporter,
	output io.Writer,
	opts ...Option,
) *Service {
	if output == nil {
		output = io.Discard
	}
	s := &Service{
		detector:  detector,
		opener:    opener,
		encoder:   encoder,
		loadImage: loadImage,
		exporter:  exporter,
		logger:    zap.NewNop(),
		output:    output,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MatchInput describes a detect-and-filter run
type MatchInput struct {
	InputPath string
	FacePath  string
	Detection appdetection.Options
	Matching  detection.MatchOptions

	// SceneProgress receives (frames covered, frame count) while scenes are found
	SceneProgress func(done, total int)
}

// Input contains all input parameters for the extract workflow
type Input struct {
	MatchInput
	OutputDir string
	Upload    bool

	// ExportProgress receives (scenes written, scene count)
	ExportProgress func(done, total int)
}

// MatchResult lists the decisions of a detect-and-filter run
type MatchResult struct {
	Evaluated []detection.MatchResult
	Relevant  []video.Scene
}

// Result contains the results of a successful process run
type Result struct {
	MatchResult
	Report  *export.Report
	Uploads []distribution.UploadResult
}

// ValidationError contains details about a validation failure with suggestions
type ValidationError struct {
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s\n\nTo fix this, run:\n  %s", e.Message, e.Suggestion)
	}
	return e.Message
}

// Match detects the scenes of the input and keeps those showing the reference face
func (s *Service) Match(ctx context.Context, in MatchInput) (*MatchResult, error) {
	if err := in.Matching.Validate(); err != nil {
		return nil, err
	}
	reference, err := s.referenceFace(in.FacePath)
	if err != nil {
		return nil, err
	}
	return s.match(ctx, in, reference)
}

// Process runs the complete end-to-end workflow
func (s *Service) Process(ctx context.Context, in Input) (*Result, error) {
	started := time.Now()
	steps := 4
	if in.Upload {
		steps++
	}

	// Validate everything that does not need the video first
	if err := in.Matching.Validate(); err != nil {
		return nil, err
	}
	if in.Upload && s.uploader == nil {
		return nil, &ValidationError{
			Message:    "upload requested but Google Drive is not configured",
			Suggestion: "face-scenes setup",
		}
	}

	// fail on a populated directory before any decoding
	fmt.Fprintf(s.output, "[1/%d] Checking output directory...\n", steps)
	if err := s.exporter.CheckDirectory(in.OutputDir); err != nil {
		return nil, fmt.Errorf("output directory check failed: %w", err)
	}
	if s.tools != nil {
		if err := s.tools.VerifyInstalled(ctx); err != nil {
			return nil, &ValidationError{
				Message:    fmt.Sprintf("ffmpeg is required to export clips: %v", err),
				Suggestion: "install ffmpeg or set ffmpeg.path in config/config.yaml",
			}
		}
	}
	fmt.Fprintf(s.output, "      %s is ready\n\n", in.OutputDir)

	// The reference image must hold exactly one face
	fmt.Fprintf(s.output, "[2/%d] Loading reference face...\n", steps)
	reference, err := s.referenceFace(in.FacePath)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(s.output, "      Using: %s\n\n", filepath.Base(in.FacePath))

	// Detection and filtering run as one pass over the scene sequence
	fmt.Fprintf(s.output, "[3/%d] Detecting and matching scenes...\n", steps)
	matched, err := s.match(ctx, in.MatchInput, reference)
	if err != nil {
		s.showRecoveryCommands(3, in)
		return nil, fmt.Errorf("scene matching failed: %w", err)
	}
	fmt.Fprintf(s.output, "      %d of %d scenes show the face\n\n", len(matched.Relevant), len(matched.Evaluated))

	result := &Result{MatchResult: *matched}

	// Export only the relevant scenes, renumbered from 1
	fmt.Fprintf(s.output, "[4/%d] Exporting scenes...\n", steps)
	if len(matched.Relevant) == 0 {
		fmt.Fprintf(s.output, "      Nothing to export\n\n")
		result.Report = &export.Report{Dir: in.OutputDir}
	} else {
		report, err := s.exporter.Write(ctx, appexport.Request{
			SourcePath: in.InputPath,
			Scenes:     matched.Relevant,
			Dir:        in.OutputDir,
			Progress:   in.ExportProgress,
		})
		if err != nil {
			s.showRecoveryCommands(4, in)
			return nil, fmt.Errorf("export failed: %w", err)
		}
		result.Report = report
		for _, path := range report.Exported() {
			fmt.Fprintf(s.output, "      Created: %s\n", path)
		}
		for _, o := range report.Failed() {
			fmt.Fprintf(s.output, "      Failed:  %s (%v)\n", describe(o), o.Err)
		}
		fmt.Fprintln(s.output)
	}

	// Upload whatever was exported, even if some scenes failed
	if in.Upload {
		fmt.Fprintf(s.output, "[5/%d] Uploading clips...\n", steps)
		uploads, err := s.uploader.UploadClips(ctx, result.Report.Exported())
		result.Uploads = uploads
		if err != nil {
			s.showRecoveryCommands(5, in)
			return result, fmt.Errorf("upload failed: %w", err)
		}
		fmt.Fprintln(s.output)
	}

	fmt.Fprintf(s.output, "Done! Completed in %s\n", formatDuration(time.Since(started)))
	return result, nil
}

func (s *Service) referenceFace(path string) (detection.Descriptor, error) {
	img, err := s.loadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference image: %w", err)
	}
	reference, err := detection.ReferenceFace(s.encoder, img)
	if err != nil {
		return nil, fmt.Errorf("reference image %s: %w", filepath.Base(path), err)
	}
	return reference, nil
}

func (s *Service) match(ctx context.Context, in MatchInput, reference detection.Descriptor) (*MatchResult, error) {
	src, err := s.opener.Open(in.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video for matching: %w", err)
	}
	defer src.Close()

	result := &MatchResult{}
	filter, err := appdetection.NewSceneFilter(src, s.encoder, reference, in.Matching,
		appdetection.WithFilterLogger(s.logger),
		appdetection.WithResultHook(func(r detection.MatchResult) {
			result.Evaluated = append(result.Evaluated, r)
		}))
	if err != nil {
		return nil, err
	}

	scenes := s.detector.Scenes(ctx, appdetection.SceneRequest{
		InputPath:     in.InputPath,
		Options:       in.Detection,
		SceneProgress: in.SceneProgress,
	})
	for scene, err := range filter.Relevant(ctx, scenes) {
		if err != nil {
			return nil, err
		}
		result.Relevant = append(result.Relevant, scene)
	}

	s.logger.Info("scene matching finished",
		zap.String("input", in.InputPath),
		zap.Int("scenes", len(result.Evaluated)),
		zap.Int("relevant", len(result.Relevant)))
	return result, nil
}

func (s *Service) showRecoveryCommands(failedStep int, in Input) {
	fmt.Fprintln(s.output)
	fmt.Fprintln(s.output, "To complete manually:")

	step := 1
	if failedStep <= 3 {
		fmt.Fprintf(s.output, "  %d. Match:      face-scenes match --input %q --face %q\n", step, in.InputPath, in.FacePath)
		step++
	}
	if failedStep <= 4 {
		fmt.Fprintf(s.output, "  %d. Export:     face-scenes extract --input %q --face %q --output %q\n", step, in.InputPath, in.FacePath, in.OutputDir)
		step++
	}
	if failedStep <= 5 && in.Upload {
		fmt.Fprintf(s.output, "  %d. Upload:     face-scenes upload --dir %q\n", step, in.OutputDir)
	}
	fmt.Fprintln(s.output)
}

func describe(o export.Outcome) string {
	if o.Job == nil {
		return "invalid scene"
	}
	return fmt.Sprintf("%s %s", o.Job.OutputFilename(), o.Job.Scene)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// StepInfo provides information about a workflow step
type StepInfo struct {
	Number      int
	Description string
}

// GetSteps returns the list of workflow steps
func GetSteps(upload bool) []StepInfo {
	steps := []StepInfo{
		{1, "Checking output directory"},
		{2, "Loading reference face"},
		{3, "Detecting and matching scenes"},
		{4, "Exporting scenes"},
	}
	if upload {
		steps = append(steps, StepInfo{5, "Uploading clips"})
	}
	return steps
}
