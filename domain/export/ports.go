package export

import (
	"context"
	"image"
	"regexp"
	"time"
)

// Transcoder extracts and muxes media streams.
// This is a port that can be implemented by different infrastructure adapters
type Transcoder interface {
	// ExtractAudio copies the audio stream of src between start and end into outputPath
	ExtractAudio(ctx context.Context, src string, start, end time.Duration, outputPath string) error

	// Mux combines a video-only and an audio-only file into outputPath
	Mux(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// FrameWriter encodes frames into a video-only file
type FrameWriter interface {
	Write(img image.Image) error
	Close() error
}

// WriterFactory creates FrameWriters sized to the first frame of a scene
type WriterFactory interface {
	Create(path string, fps float64, width, height int) (FrameWriter, error)
}

// Workspace abstracts the output directory operations of an export
type Workspace interface {
	// Matching lists the names of entries in dir whose name matches pattern
	Matching(dir string, pattern *regexp.Regexp) ([]string, error)

	// Ensure creates dir if it does not exist
	Ensure(dir string) error

	// Exists returns true if the file exists
	Exists(path string) bool

	// Remove deletes a file, ignoring files that do not exist
	Remove(path string) error

	// Lock takes an exclusive lock on dir for the duration of an export
	Lock(dir string) (unlock func() error, err error)
}
