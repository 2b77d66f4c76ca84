package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"strconv"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"face-scenes/domain/export"
)

// WriterFactory creates H.264 video-only files fed with rawvideo through ffmpeg's stdin
type WriterFactory struct {
	ffmpegPath string
	runner     PipeRunner
}

// NewWriterFactory creates a new ffmpeg-backed writer factory
func NewWriterFactory(ffmpegPath string, runner PipeRunner) *WriterFactory {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if runner == nil {
		runner = NewExecCommandRunner(nil)
	}
	return &WriterFactory{ffmpegPath: ffmpegPath, runner: runner}
}

// EvenPad pads odd frame sizes by one pixel; yuv420p needs even dimensions
const EvenPad = "pad=ceil(iw/2)*2:ceil(ih/2)*2"

// EncodeArgs builds the ffmpeg arguments that encode rgba rawvideo from stdin into path
func EncodeArgs(path string, fps float64, width, height int) []string {
	return ffmpeggo.Input("pipe:", ffmpeggo.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", width, height),
		"framerate": strconv.FormatFloat(fps, 'f', -1, 64),
	}).
		Output(path, ffmpeggo.KwArgs{
			"vf":       EvenPad,
			"c:v":      "libx264",
			"pix_fmt":  "yuv420p",
			"loglevel": "error",
		}).
		OverWriteOutput().
		GetArgs()
}

// Create implements export.WriterFactory
func (f *WriterFactory) Create(path string, fps float64, width, height int) (export.FrameWriter, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid frame rate %v", fps)
	}
	stdin, err := f.runner.StartWriter(context.Background(), f.ffmpegPath, EncodeArgs(path, fps, width, height)...)
	if err != nil {
		return nil, fmt.Errorf("failed to start encoder for %s: %w", path, err)
	}
	return &Writer{
		stdin: stdin,
		frame: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Writer encodes frames of one fixed size
type Writer struct {
	stdin  io.WriteCloser
	frame  *image.RGBA
	closed bool
}

// Write implements export.FrameWriter. Frames of another size are drawn
// onto the writer's canvas anchored at the top-left corner.
func (w *Writer) Write(img image.Image) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	pix := w.frame.Pix
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect == w.frame.Rect && rgba.Stride == w.frame.Stride {
		pix = rgba.Pix
	} else {
		draw.Draw(w.frame, w.frame.Rect, img, img.Bounds().Min, draw.Src)
	}
	if _, err := w.stdin.Write(pix); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close implements export.FrameWriter, waiting for the encoder to finish
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.stdin.Close(); err != nil {
		return fmt.Errorf("encoder failed: %w", err)
	}
	return nil
}

var (
	_ export.WriterFactory = (*WriterFactory)(nil)
	_ export.FrameWriter   = (*Writer)(nil)
)
