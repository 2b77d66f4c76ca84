package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Detection.Detector != "content" {
		t.Errorf("detector = %q, want content", cfg.Detection.Detector)
	}
	if cfg.Matching.Tolerance != 0.7 || cfg.Matching.Frequency != 10 || cfg.Matching.Quality != 0.5 {
		t.Errorf("matching defaults = %+v", cfg.Matching)
	}
	if cfg.Backend.Video != BackendFFmpeg {
		t.Errorf("backend = %q, want %q", cfg.Backend.Video, BackendFFmpeg)
	}
	if cfg.Detection.Downscale != 0 {
		t.Errorf("downscale = %d, want 0 (auto)", cfg.Detection.Downscale)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
paths:
  output_directory: /tmp/clips
detection:
  detector: hash
  threshold: 10
  downscale: 2
matching:
  tolerance: 0.55
  frequency: 5
google:
  folder_id: abc123
cache:
  disabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Paths.OutputDirectory != "/tmp/clips" {
		t.Errorf("output directory = %q", cfg.Paths.OutputDirectory)
	}
	if cfg.Detection.Detector != "hash" || cfg.Detection.Threshold != 10 || cfg.Detection.Downscale != 2 {
		t.Errorf("detection = %+v", cfg.Detection)
	}
	if cfg.Matching.Tolerance != 0.55 || cfg.Matching.Frequency != 5 {
		t.Errorf("matching = %+v", cfg.Matching)
	}
	if cfg.Matching.Quality != 0.5 {
		t.Errorf("quality = %g, want default 0.5", cfg.Matching.Quality)
	}
	if cfg.Google.FolderID != "abc123" {
		t.Errorf("folder id = %q", cfg.Google.FolderID)
	}
	if !cfg.Cache.Disabled {
		t.Error("cache should be disabled")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
matching:
  tolerance: 0.55
logging:
  level: info
`)
	t.Setenv("FACE_SCENES_MATCHING_TOLERANCE", "0.4")
	t.Setenv("FACE_SCENES_LOGGING_LEVEL", "debug")
	t.Setenv("FACE_SCENES_FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("FACE_SCENES_DETECTION_FRAME_SKIP", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Matching.Tolerance != 0.4 {
		t.Errorf("tolerance = %g, want 0.4", cfg.Matching.Tolerance)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.FFmpeg.Path != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("ffmpeg path = %q", cfg.FFmpeg.Path)
	}
	if cfg.Detection.FrameSkip != 3 {
		t.Errorf("frame skip = %d, want 3", cfg.Detection.FrameSkip)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		env       map[string]string
		invalid   bool
		errSubstr string
	}{
		{
			name:      "malformed yaml",
			content:   "detection: [",
			errSubstr: "failed to parse config file",
		},
		{
			name:      "unknown detector",
			content:   "detection:\n  detector: histogram\n",
			invalid:   true,
			errSubstr: "detection.detector",
		},
		{
			name:      "quality above one",
			content:   "matching:\n  quality: 1.5\n",
			invalid:   true,
			errSubstr: "matching.quality",
		},
		{
			name:      "unknown backend",
			content:   "backend:\n  video: vlc\n",
			invalid:   true,
			errSubstr: "backend.video",
		},
		{
			name:      "bad env value",
			content:   "",
			env:       map[string]string{"FACE_SCENES_MATCHING_FREQUENCY": "often"},
			errSubstr: "failed to read environment overrides",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.invalid && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("error %q does not mention %q", err, tt.errSubstr)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Matching.Frequency = -1
	cfg.Detection.FrameSkip = -2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"matching.frequency", "detection.frame_skip"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Google.FolderID = "folder-1"
	cfg.Matching.Frequency = 3

	if err := Save(cfg, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Google.FolderID != "folder-1" || loaded.Matching.Frequency != 3 {
		t.Errorf("loaded = %+v", loaded)
	}
}
