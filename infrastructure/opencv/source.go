//go:build detection

package opencv

import (
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	"face-scenes/domain/export"
	"face-scenes/domain/video"
)

// Opener opens videos with OpenCV's VideoCapture
type Opener struct{}

// NewOpener creates a new OpenCV source opener
func NewOpener() *Opener {
	return &Opener{}
}

// Open implements video.SourceOpener
func (o *Opener) Open(path string) (video.FrameSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("failed to open video %s", path)
	}
	return &Source{
		capture: vc,
		mat:     gocv.NewMat(),
		fps:     vc.Get(gocv.VideoCaptureFPS),
		count:   int(vc.Get(gocv.VideoCaptureFrameCount)),
		width:   int(vc.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(vc.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Source is a FrameSource over a gocv.VideoCapture
type Source struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	pos     int
	fps     float64
	count   int
	width   int
	height  int
}

// Seek implements video.FrameSource
func (s *Source) Seek(index int) error {
	if index < 0 {
		return fmt.Errorf("cannot seek to negative frame %d", index)
	}
	s.capture.Set(gocv.VideoCapturePosFrames, float64(index))
	s.pos = index
	return nil
}

// Read implements video.FrameSource
func (s *Source) Read() (image.Image, error) {
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, io.EOF
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame %d: %w", s.pos, err)
	}
	s.pos++
	return img, nil
}

// Grab implements video.FrameSource
func (s *Source) Grab() error {
	if s.count > 0 && s.pos >= s.count {
		return io.EOF
	}
	s.capture.Grab(1)
	s.pos++
	return nil
}

// Position implements video.FrameSource
func (s *Source) Position() int { return s.pos }

// FPS implements video.FrameSource
func (s *Source) FPS() float64 { return s.fps }

// FrameCount implements video.FrameSource
func (s *Source) FrameCount() int { return s.count }

// Size implements video.FrameSource
func (s *Source) Size() (int, int) { return s.width, s.height }

// Close implements video.FrameSource
func (s *Source) Close() error {
	s.mat.Close()
	return s.capture.Close()
}

// WriterFactory creates mp4v writers with OpenCV's VideoWriter
type WriterFactory struct{}

// NewWriterFactory creates a new OpenCV writer factory
func NewWriterFactory() *WriterFactory {
	return &WriterFactory{}
}

// Create implements export.WriterFactory
func (f *WriterFactory) Create(path string, fps float64, width, height int) (export.FrameWriter, error) {
	vw, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create video writer %s: %w", path, err)
	}
	return &Writer{writer: vw, width: width, height: height}, nil
}

// Writer writes frames through a gocv.VideoWriter
type Writer struct {
	writer *gocv.VideoWriter
	width  int
	height int
}

// Write implements export.FrameWriter
func (w *Writer) Write(img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	if mat.Cols() != w.width || mat.Rows() != w.height {
		gocv.Resize(mat, &mat, image.Pt(w.width, w.height), 0, 0, gocv.InterpolationLinear)
	}
	return w.writer.Write(mat)
}

// Close implements export.FrameWriter
func (w *Writer) Close() error {
	return w.writer.Close()
}

// Available reports whether this build can decode with OpenCV
func Available() bool { return true }

var (
	_ video.SourceOpener   = (*Opener)(nil)
	_ video.FrameSource    = (*Source)(nil)
	_ export.WriterFactory = (*WriterFactory)(nil)
	_ export.FrameWriter   = (*Writer)(nil)
)
