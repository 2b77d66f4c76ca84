package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"face-scenes/domain/export"
	"face-scenes/domain/video"
)

// Transcoder implements export.Transcoder using the ffmpeg binary
type Transcoder struct {
	ffmpegPath string
	runner     CommandRunner
}

// TranscoderOption is a functional option for configuring Transcoder
type TranscoderOption func(*Transcoder)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) TranscoderOption {
	return func(t *Transcoder) {
		if path != "" {
			t.ffmpegPath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) TranscoderOption {
	return func(t *Transcoder) {
		t.runner = runner
	}
}

// NewTranscoder creates a new FFmpeg-based transcoder
func NewTranscoder(opts ...TranscoderOption) *Transcoder {
	t := &Transcoder{
		ffmpegPath: "ffmpeg",
		runner:     NewExecCommandRunner(nil),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// ExtractAudio copies the audio stream of src between start and end into outputPath
func (t *Transcoder) ExtractAudio(ctx context.Context, src string, start, end time.Duration, outputPath string) error {
	if end <= start {
		return fmt.Errorf("audio range end %s must be after start %s", video.FormatTimecode(end), video.FormatTimecode(start))
	}

	args := []string{
		"-i", src,
		"-ss", video.FormatSeconds(start),
		"-to", video.FormatSeconds(end),
		"-vn",
		"-acodec", "copy",
		"-y", // Overwrite output file if it exists
		outputPath,
	}

	if err := t.runner.Run(ctx, t.ffmpegPath, args...); err != nil {
		return fmt.Errorf("ffmpeg audio extraction failed: %w", err)
	}

	return nil
}

// Mux combines a video-only file and an audio file, re-encoding the audio as AAC
func (t *Transcoder) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-strict", "experimental",
		"-y",
		outputPath,
	}

	if err := t.runner.Run(ctx, t.ffmpegPath, args...); err != nil {
		return fmt.Errorf("ffmpeg mux failed: %w", err)
	}

	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (t *Transcoder) VerifyInstalled(ctx context.Context) error {
	_, err := t.runner.Output(ctx, t.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Ensure Transcoder implements export.Transcoder
var _ export.Transcoder = (*Transcoder)(nil)
