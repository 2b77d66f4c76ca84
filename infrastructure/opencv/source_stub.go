//go:build !detection

package opencv

import (
	"face-scenes/domain/export"
	"face-scenes/domain/video"
)

// Opener is a stub when GoCV/OpenCV is not available
type Opener struct{}

// NewOpener creates a stub opener (requires building with -tags=detection)
func NewOpener() *Opener {
	return &Opener{}
}

// Open returns ErrUnavailable
func (o *Opener) Open(path string) (video.FrameSource, error) {
	return nil, ErrUnavailable
}

// WriterFactory is a stub when GoCV/OpenCV is not available
type WriterFactory struct{}

// NewWriterFactory creates a stub writer factory
func NewWriterFactory() *WriterFactory {
	return &WriterFactory{}
}

// Create returns ErrUnavailable
func (f *WriterFactory) Create(path string, fps float64, width, height int) (export.FrameWriter, error) {
	return nil, ErrUnavailable
}

// Available reports whether this build can decode with OpenCV
func Available() bool { return false }

var (
	_ video.SourceOpener   = (*Opener)(nil)
	_ export.WriterFactory = (*WriterFactory)(nil)
)
