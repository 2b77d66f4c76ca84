package export

import (
	"strings"
	"testing"

	"face-scenes/domain/video"
)

func TestNewJob(t *testing.T) {
	scene := video.Scene{StartFrame: 450, EndFrame: 900, FPS: 30}

	tests := []struct {
		name        string
		number      int
		scene       video.Scene
		dir         string
		wantErr     bool
		errContains string
	}{
		{name: "valid job", number: 1, scene: scene, dir: "/tmp/out"},
		{name: "zero number", number: 0, scene: scene, dir: "/tmp/out", wantErr: true, errContains: "must start at 1"},
		{name: "empty dir", number: 1, scene: scene, dir: "", wantErr: true, errContains: "output directory is required"},
		{name: "empty scene", number: 1, scene: video.Scene{StartFrame: 5, EndFrame: 5, FPS: 30}, dir: "/tmp", wantErr: true, errContains: "must be after start frame"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJob(tt.number, tt.scene, tt.dir)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewJob() expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewJob() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("NewJob() unexpected error: %v", err)
			}
		})
	}
}

func TestJob_Paths(t *testing.T) {
	job := &Job{Number: 3, Dir: "/home/user/clips"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"output", job.OutputPath(), "/home/user/clips/scene_3.mp4"},
		{"video temp", job.VideoTempPath(), "/home/user/clips/scene_3_temp.mp4"},
		{"audio temp", job.AudioTempPath(), "/home/user/clips/scene_3_audio.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestOutputPattern(t *testing.T) {
	tests := []struct {
		name  string
		match bool
	}{
		{"scene_1.mp4", true},
		{"scene_12.mp4", true},
		{"scene_1_temp.mp4", true},
		{"scene_7_audio.mp4", true},
		{"scene_.mp4", false},
		{"scene_1.mkv", false},
		{"my_scene_1.mp4", false},
		{"scene_1_other.mp4", false},
		{".face-scenes.lock", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputPattern.MatchString(tt.name); got != tt.match {
				t.Errorf("OutputPattern.MatchString(%q) = %v, want %v", tt.name, got, tt.match)
			}
		})
	}
}

func TestClipNumber(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"scene_1.mp4", 1, true},
		{"scene_12.mp4", 12, true},
		{"scene_1_temp.mp4", 0, false},
		{"scene_3_audio.mp4", 0, false},
		{"clip_3.mp4", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClipNumber(tt.name)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ClipNumber(%q) = %d, %v, want %d, %v", tt.name, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFilesAlreadyExistError(t *testing.T) {
	err := &FilesAlreadyExistError{Dir: "result", Files: []string{"scene_1.mp4", "scene_2_temp.mp4"}}
	msg := err.Error()
	if !strings.Contains(msg, `"result"`) || !strings.Contains(msg, `"scene_2_temp.mp4"`) {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestReport(t *testing.T) {
	r := &Report{Outcomes: []Outcome{
		{OutputPath: "a/scene_1.mp4"},
		{OutputPath: "", Err: errTest},
		{OutputPath: "a/scene_3.mp4"},
	}}

	if got := r.Exported(); len(got) != 2 || got[1] != "a/scene_3.mp4" {
		t.Errorf("Exported() = %v", got)
	}
	if got := r.Failed(); len(got) != 1 {
		t.Errorf("Failed() returned %d outcomes, want 1", len(got))
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("boom")
