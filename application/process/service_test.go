package process

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdetection "face-scenes/application/detection"
	appexport "face-scenes/application/export"
	"face-scenes/domain/detection"
	"face-scenes/domain/distribution"
	"face-scenes/domain/export"
	"face-scenes/domain/video"
)

var errBoom = errors.New("boom")

// --- Mock implementations for testing ---

// mockDetector yields a fixed scene list
type mockDetector struct {
	scenes []video.Scene
	err    error
	calls  int
}

func (m *mockDetector) Scenes(ctx context.Context, req appdetection.SceneRequest) iter.Seq2[video.Scene, error] {
	m.calls++
	return func(yield func(video.Scene, error) bool) {
		for _, s := range m.scenes {
			if !yield(s, nil) {
				return
			}
		}
		if m.err != nil {
			yield(video.Scene{}, m.err)
		}
	}
}

// shadeSource renders every frame as a uniform grey whose level is the scene number
type shadeSource struct {
	count   int
	sceneAt func(int) int
	pos     int
	closed  bool
}

func (s *shadeSource) Seek(i int) error { s.pos = i; return nil }
func (s *shadeSource) Grab() error {
	if s.pos >= s.count {
		return io.EOF
	}
	s.pos++
	return nil
}
func (s *shadeSource) Read() (image.Image, error) {
	if s.pos >= s.count {
		return nil, io.EOF
	}
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	level := uint8(s.sceneAt(s.pos) * 50)
	for i := range img.Pix {
		img.Pix[i] = level
	}
	s.pos++
	return img, nil
}
func (s *shadeSource) Position() int    { return s.pos }
func (s *shadeSource) FPS() float64     { return 30 }
func (s *shadeSource) FrameCount() int  { return s.count }
func (s *shadeSource) Size() (int, int) { return 8, 8 }
func (s *shadeSource) Close() error     { s.closed = true; return nil }

type mockOpener struct {
	src *shadeSource
	err error
}

func (m *mockOpener) Open(path string) (video.FrameSource, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.src, nil
}

// shadeEncoder sees the reference face in frames of the given grey level.
// Images wider than 100 pixels are treated as the reference photo.
type shadeEncoder struct {
	faceLevel     uint32
	referenceFace int
}

func (e *shadeEncoder) Encode(img image.Image) ([]detection.Descriptor, error) {
	if img.Bounds().Dx() > 100 {
		faces := make([]detection.Descriptor, e.referenceFace)
		for i := range faces {
			faces[i] = detection.Descriptor{0, 1}
		}
		return faces, nil
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	if r>>8 == e.faceLevel {
		return []detection.Descriptor{{0, 1.1}}, nil
	}
	return []detection.Descriptor{{5, 5}}, nil
}

func (e *shadeEncoder) Close() error { return nil }

func loadPhoto(path string) (image.Image, error) {
	if path == "missing.jpg" {
		return nil, errBoom
	}
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	img.SetGray(0, 0, color.Gray{Y: 1})
	return img, nil
}

type mockExporter struct {
	checkErr error
	writeErr error
	requests []appexport.Request
	failed   int
}

func (m *mockExporter) CheckDirectory(dir string) error { return m.checkErr }

func (m *mockExporter) Write(ctx context.Context, req appexport.Request) (*export.Report, error) {
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	m.requests = append(m.requests, req)
	report := &export.Report{Dir: req.Dir}
	for i, s := range req.Scenes {
		job, _ := export.NewJob(i+1, s, req.Dir)
		o := export.Outcome{Job: job, OutputPath: job.OutputPath()}
		if i < m.failed {
			o = export.Outcome{Job: job, Err: errBoom}
		}
		report.Outcomes = append(report.Outcomes, o)
	}
	return report, nil
}

type mockTools struct{ err error }

func (m mockTools) VerifyInstalled(ctx context.Context) error { return m.err }

type mockUploader struct {
	paths [][]string
	err   error
}

func (m *mockUploader) UploadClips(ctx context.Context, paths []string) ([]distribution.UploadResult, error) {
	m.paths = append(m.paths, paths)
	if m.err != nil {
		return nil, m.err
	}
	var results []distribution.UploadResult
	for _, p := range paths {
		results = append(results, distribution.UploadResult{FileName: p, ShareableURL: "https://drive/" + p})
	}
	return results, nil
}

type harness struct {
	detector *mockDetector
	src      *shadeSource
	encoder  *shadeEncoder
	exporter *mockExporter
	uploader *mockUploader
	out      *bytes.Buffer
}

// newHarness builds a 30s, 30fps video with a hard cut at 15s and the face in the second half
func newHarness() *harness {
	sceneAt := func(i int) int {
		if i >= 450 {
			return 2
		}
		return 1
	}
	return &harness{
		detector: &mockDetector{scenes: []video.Scene{
			{StartFrame: 0, EndFrame: 450, FPS: 30},
			{StartFrame: 450, EndFrame: 900, FPS: 30},
		}},
		src:      &shadeSource{count: 900, sceneAt: sceneAt},
		encoder:  &shadeEncoder{faceLevel: 100, referenceFace: 1},
		exporter: &mockExporter{},
		uploader: &mockUploader{},
		out:      &bytes.Buffer{},
	}
}

func (h *harness) service(opts ...Option) *Service {
	return NewService(h.detector, &mockOpener{src: h.src}, h.encoder, loadPhoto, h.exporter, h.out, opts...)
}

func input(upload bool) Input {
	return Input{
		MatchInput: MatchInput{
			InputPath: "video.mp4",
			FacePath:  "face.jpg",
			Matching:  detection.DefaultMatchOptions(),
		},
		OutputDir: "out",
		Upload:    upload,
	}
}

func TestService_Process(t *testing.T) {
	h := newHarness()

	result, err := h.service(WithToolChecker(mockTools{})).Process(context.Background(), input(false))
	require.NoError(t, err)

	require.Len(t, result.Relevant, 1)
	assert.Equal(t, 15*time.Second, result.Relevant[0].Start())
	assert.Equal(t, 30*time.Second, result.Relevant[0].End())
	assert.Len(t, result.Evaluated, 2)
	assert.False(t, result.Evaluated[0].Matched)
	assert.Equal(t, 45, result.Evaluated[0].SamplesChecked)
	assert.Equal(t, 450, result.Evaluated[1].MatchedFrame)

	require.Len(t, h.exporter.requests, 1)
	assert.Equal(t, "video.mp4", h.exporter.requests[0].SourcePath)
	assert.Equal(t, []string{"out/scene_1.mp4"}, result.Report.Exported())
	assert.True(t, h.src.closed)

	assert.Contains(t, h.out.String(), "[1/4] Checking output directory...")
	assert.Contains(t, h.out.String(), "1 of 2 scenes show the face")
	assert.Contains(t, h.out.String(), "Created: out/scene_1.mp4")
	assert.Contains(t, h.out.String(), "Done! Completed in")
	assert.Empty(t, h.uploader.paths)
}

func TestService_ProcessWithUpload(t *testing.T) {
	h := newHarness()

	result, err := h.service(WithUploader(h.uploader)).Process(context.Background(), input(true))
	require.NoError(t, err)

	require.Len(t, h.uploader.paths, 1)
	assert.Equal(t, []string{"out/scene_1.mp4"}, h.uploader.paths[0])
	require.Len(t, result.Uploads, 1)
	assert.Contains(t, h.out.String(), "[5/5] Uploading clips...")
}

func TestService_ProcessWithoutRelevantScenes(t *testing.T) {
	h := newHarness()
	h.encoder.faceLevel = 0 // never matches

	result, err := h.service(WithUploader(h.uploader)).Process(context.Background(), input(true))
	require.NoError(t, err)
	assert.Empty(t, result.Relevant)
	assert.Empty(t, h.exporter.requests, "nothing to export")
	assert.Contains(t, h.out.String(), "Nothing to export")
	require.Len(t, h.uploader.paths, 1)
	assert.Empty(t, h.uploader.paths[0])
}

func TestService_ProcessReportsFailedScenes(t *testing.T) {
	h := newHarness()
	h.encoder.faceLevel = 50
	h.src.sceneAt = func(int) int { return 1 }
	h.exporter.failed = 1

	result, err := h.service().Process(context.Background(), input(false))
	require.NoError(t, err)
	assert.Len(t, result.Report.Failed(), 1)
	assert.Contains(t, h.out.String(), "Failed:  scene_1.mp4")
	assert.Contains(t, h.out.String(), "Created: out/scene_2.mp4")
}

func TestService_ProcessErrors(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *harness) []Option
		in         func() Input
		wantErr    error
		wantAs     any
		errSubstr  string
		noDetector bool
		recovery   bool
	}{
		{
			name: "populated output directory",
			setup: func(h *harness) []Option {
				h.exporter.checkErr = &export.FilesAlreadyExistError{Dir: "out", Files: []string{"scene_1.mp4"}}
				return nil
			},
			wantAs:     new(*export.FilesAlreadyExistError),
			noDetector: true,
		},
		{
			name: "ffmpeg missing",
			setup: func(h *harness) []Option {
				return []Option{WithToolChecker(mockTools{err: errBoom})}
			},
			wantAs:     new(*ValidationError),
			noDetector: true,
		},
		{
			name:       "reference image unreadable",
			setup:      func(h *harness) []Option { return nil },
			in:         func() Input { in := input(false); in.FacePath = "missing.jpg"; return in },
			wantErr:    errBoom,
			errSubstr:  "failed to load reference image",
			noDetector: true,
		},
		{
			name: "reference image with two faces",
			setup: func(h *harness) []Option {
				h.encoder.referenceFace = 2
				return nil
			},
			wantAs:     new(*detection.InvalidFaceCountError),
			noDetector: true,
		},
		{
			name: "invalid match options",
			setup: func(h *harness) []Option {
				return nil
			},
			in: func() Input {
				in := input(false)
				in.Matching.Frequency = 0
				return in
			},
			wantErr:    detection.ErrInvalidConfig,
			noDetector: true,
		},
		{
			name: "detection failure",
			setup: func(h *harness) []Option {
				h.detector.err = errBoom
				return nil
			},
			wantErr:   errBoom,
			errSubstr: "scene matching failed",
			recovery:  true,
		},
		{
			name: "export failure",
			setup: func(h *harness) []Option {
				h.exporter.writeErr = errBoom
				return nil
			},
			wantErr:   errBoom,
			errSubstr: "export failed",
			recovery:  true,
		},
		{
			name: "upload without drive",
			setup: func(h *harness) []Option {
				return nil
			},
			in:         func() Input { return input(true) },
			wantAs:     new(*ValidationError),
			noDetector: true,
		},
		{
			name: "upload failure",
			setup: func(h *harness) []Option {
				h.uploader.err = errBoom
				return []Option{WithUploader(h.uploader)}
			},
			in:        func() Input { return input(true) },
			wantErr:   errBoom,
			errSubstr: "upload failed",
			recovery:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			opts := tt.setup(h)
			in := input(false)
			if tt.in != nil {
				in = tt.in()
			}

			_, err := h.service(opts...).Process(context.Background(), in)
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantAs != nil {
				assert.ErrorAs(t, err, tt.wantAs)
			}
			if tt.errSubstr != "" {
				assert.Contains(t, err.Error(), tt.errSubstr)
			}
			if tt.noDetector {
				assert.Zero(t, h.detector.calls)
			}
			assert.Equal(t, tt.recovery, bytes.Contains(h.out.Bytes(), []byte("To complete manually:")))
		})
	}
}

func TestService_Match(t *testing.T) {
	h := newHarness()

	result, err := h.service().Match(context.Background(), input(false).MatchInput)
	require.NoError(t, err)
	require.Len(t, result.Relevant, 1)
	assert.Equal(t, 450, result.Relevant[0].StartFrame)
	assert.Empty(t, h.exporter.requests)
	assert.Empty(t, h.out.String())
}

func TestService_MatchOpenFailure(t *testing.T) {
	h := newHarness()
	svc := NewService(h.detector, &mockOpener{err: errBoom}, h.encoder, loadPhoto, h.exporter, nil)

	_, err := svc.Match(context.Background(), input(false).MatchInput)
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "failed to open video for matching")
}

func TestGetSteps(t *testing.T) {
	assert.Len(t, GetSteps(false), 4)
	steps := GetSteps(true)
	require.Len(t, steps, 5)
	assert.Equal(t, "Uploading clips", steps[4].Description)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
}
