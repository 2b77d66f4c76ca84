package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Video backends
const (
	BackendFFmpeg = "ffmpeg"
	BackendOpenCV = "opencv"
)

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero values. Zero downscale and frame skip are meaningful and left alone.
func (c *Config) applyDefaults() {
	if c.Paths.OutputDirectory == "" {
		c.Paths.OutputDirectory = "scenes"
	}
	if c.Detection.Detector == "" {
		c.Detection.Detector = "content"
	}
	if c.Detection.QueueSize == 0 {
		c.Detection.QueueSize = 4
	}
	if c.Matching.Tolerance == 0 {
		c.Matching.Tolerance = 0.7
	}
	if c.Matching.Frequency == 0 {
		c.Matching.Frequency = 10
	}
	if c.Matching.Quality == 0 {
		c.Matching.Quality = 0.5
	}
	if c.FFmpeg.Path == "" {
		c.FFmpeg.Path = "ffmpeg"
	}
	if c.Backend.Video == "" {
		c.Backend.Video = BackendFFmpeg
	}
	if c.Backend.CascadePath == "" {
		c.Backend.CascadePath = "models/haarcascade_frontalface_default.xml"
	}
	if c.Backend.EmbedderPath == "" {
		c.Backend.EmbedderPath = "models/openface.nn4.small2.v1.t7"
	}
	if c.Backend.MinFaceSize == 0 {
		c.Backend.MinFaceSize = 40
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Google.CredentialsFile == "" {
		c.Google.CredentialsFile = "config/credentials.json"
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = "config/token.json"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = defaultCachePath()
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".cache", "face-scenes", "cuts.json")
	}
	return filepath.Join(dir, "face-scenes", "cuts.json")
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s %s", ErrInvalid, field, fmt.Sprintf(format, args...)))
	}

	switch c.Detection.Detector {
	case "content", "hash":
	default:
		invalid("detection.detector", "must be content or hash, got %q", c.Detection.Detector)
	}
	if c.Detection.Threshold < 0 {
		invalid("detection.threshold", "must not be negative")
	}
	if c.Detection.MinSceneLength < 0 {
		invalid("detection.min_scene_length", "must not be negative")
	}
	if c.Detection.FrameSkip < 0 {
		invalid("detection.frame_skip", "must not be negative")
	}
	if c.Detection.Downscale < 0 {
		invalid("detection.downscale", "must not be negative")
	}
	if c.Detection.QueueSize < 1 {
		invalid("detection.queue_size", "must be at least 1")
	}
	if c.Matching.Tolerance <= 0 {
		invalid("matching.tolerance", "must be positive")
	}
	if c.Matching.Frequency < 1 {
		invalid("matching.frequency", "must be at least 1")
	}
	if c.Matching.Quality <= 0 || c.Matching.Quality > 1 {
		invalid("matching.quality", "must be in (0, 1], got %g", c.Matching.Quality)
	}
	switch c.Backend.Video {
	case BackendFFmpeg, BackendOpenCV:
	default:
		invalid("backend.video", "must be %s or %s, got %q", BackendFFmpeg, BackendOpenCV, c.Backend.Video)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		invalid("logging.format", "must be console or json, got %q", c.Logging.Format)
	}

	return errors.Join(errs...)
}
