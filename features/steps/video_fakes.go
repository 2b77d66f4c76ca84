//go:build integration

package steps

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"sync"
	"time"

	"face-scenes/domain/detection"
	"face-scenes/domain/export"
	"face-scenes/domain/video"
)

var (
	sceneOneColor = color.RGBA{R: 20, G: 40, B: 200, A: 255}
	sceneTwoColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}
)

// syntheticVideo describes a solid-colour video with a single hard cut
type syntheticVideo struct {
	frames int
	fps    float64
	cutAt  int
}

func (v syntheticVideo) colorAt(i int) color.RGBA {
	if i >= v.cutAt {
		return sceneTwoColor
	}
	return sceneOneColor
}

// syntheticOpener opens syntheticSources and counts how often it was asked to
type syntheticOpener struct {
	mu    sync.Mutex
	video syntheticVideo
	opens int
}

func (o *syntheticOpener) Open(path string) (video.FrameSource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	return &syntheticSource{video: o.video}, nil
}

func (o *syntheticOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

type syntheticSource struct {
	video syntheticVideo
	pos   int
}

func (s *syntheticSource) Seek(index int) error {
	if index < 0 {
		return errors.New("negative seek")
	}
	s.pos = index
	return nil
}

func (s *syntheticSource) Read() (image.Image, error) {
	if s.pos >= s.video.frames {
		return nil, io.EOF
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	c := s.video.colorAt(s.pos)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	s.pos++
	return img, nil
}

func (s *syntheticSource) Grab() error {
	if s.pos >= s.video.frames {
		return io.EOF
	}
	s.pos++
	return nil
}

func (s *syntheticSource) Position() int    { return s.pos }
func (s *syntheticSource) FPS() float64     { return s.video.fps }
func (s *syntheticSource) FrameCount() int  { return s.video.frames }
func (s *syntheticSource) Size() (int, int) { return 64, 48 }
func (s *syntheticSource) Close() error     { return nil }

// referenceSize marks the reference photo so the encoder can tell it from frames
const referenceSize = 100

// colorEncoder finds a face in every frame whose red channel dominates
type colorEncoder struct {
	referenceFaces int
	faceInFrames   bool
}

func (e *colorEncoder) Encode(img image.Image) ([]detection.Descriptor, error) {
	if img.Bounds().Dx() == referenceSize {
		faces := make([]detection.Descriptor, e.referenceFaces)
		for i := range faces {
			faces[i] = detection.Descriptor{0, 1}
		}
		return faces, nil
	}
	if !e.faceInFrames {
		return nil, nil
	}
	r, _, b, _ := img.At(0, 0).RGBA()
	if r > b {
		return []detection.Descriptor{{0, 1.05}}, nil
	}
	return nil, nil
}

func (e *colorEncoder) Close() error { return nil }

func loadReference(path string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, referenceSize, referenceSize)), nil
}

// fileWriters writes one byte per frame so clips exist on disk
type fileWriters struct{}

func (fileWriters) Create(path string, fps float64, width, height int) (export.FrameWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &fileWriter{f: f}, nil
}

type fileWriter struct {
	f *os.File
}

func (w *fileWriter) Write(img image.Image) error {
	_, err := w.f.Write([]byte{0})
	return err
}

func (w *fileWriter) Close() error { return w.f.Close() }

// fileTranscoder concatenates its inputs instead of running ffmpeg
type fileTranscoder struct{}

func (fileTranscoder) ExtractAudio(ctx context.Context, src string, start, end time.Duration, outputPath string) error {
	return os.WriteFile(outputPath, []byte(start.String()+"-"+end.String()), 0644)
}

func (fileTranscoder) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	v, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	a, err := os.ReadFile(audioPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, append(v, a...), 0644)
}

func (fileTranscoder) VerifyInstalled(ctx context.Context) error { return nil }
