package video

import (
	"errors"
	"image"
	"time"
)

// Frame is one decoded picture of a video together with its position
type Frame struct {
	Index     int
	Timestamp time.Duration
	Image     image.Image
}

// NewFrame builds a Frame, deriving its timestamp from the index and fps
func NewFrame(index int, fps float64, img image.Image) Frame {
	return Frame{
		Index:     index,
		Timestamp: FrameTime(index, fps),
		Image:     img,
	}
}

// FrameTime converts a frame index into a timestamp
func FrameTime(index int, fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(index) / fps * float64(time.Second))
}

// FrameAt converts a timestamp into the index of the frame shown at that time
func FrameAt(t time.Duration, fps float64) int {
	if fps <= 0 || t <= 0 {
		return 0
	}
	return int(t.Seconds()*fps + 1e-6)
}

// FrameSource is a seekable, sequential reader of video frames.
// This is a port that can be implemented by different decoding backends
type FrameSource interface {
	// Seek positions the source so the next Read returns frame index
	Seek(index int) error

	// Read decodes the frame at the current position and advances by one.
	// It returns io.EOF once the stream is exhausted.
	Read() (image.Image, error)

	// Grab advances by one frame without decoding pixel data
	Grab() error

	// Position returns the index of the frame the next Read will return
	Position() int

	// FPS returns the nominal frame rate
	FPS() float64

	// FrameCount returns the total number of frames, or 0 when unknown
	FrameCount() int

	// Size returns the frame width and height in pixels
	Size() (width, height int)

	// Close releases the underlying decoder
	Close() error
}

// SourceOpener opens FrameSources by file path
type SourceOpener interface {
	Open(path string) (FrameSource, error)
}

// Duration returns the length of a source computed from its frame count
func Duration(src FrameSource) time.Duration {
	return FrameTime(src.FrameCount(), src.FPS())
}

// ErrNoFrames is returned when a range of a source yields no decodable frames
var ErrNoFrames = errors.New("no frames could be read")
