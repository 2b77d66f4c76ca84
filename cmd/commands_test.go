package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	appdetection "face-scenes/application/detection"
	"face-scenes/application/process"
	"face-scenes/domain/detection"
	"face-scenes/domain/distribution"
	"face-scenes/domain/export"
	"face-scenes/domain/video"
	"face-scenes/infrastructure/config"
)

type recordingProgress struct {
	updates  int
	finished bool
}

func (p *recordingProgress) Update(done, total int) { p.updates++ }
func (p *recordingProgress) Finish()                { p.finished = true }

type mockLister struct {
	scenes     []video.Scene
	events     []detection.Event
	err        error
	req        appdetection.SceneRequest
	withEvents bool
}

func (m *mockLister) DetectScenes(ctx context.Context, req appdetection.SceneRequest) ([]video.Scene, error) {
	m.req = req
	if req.Options.Progress != nil {
		req.Options.Progress(10, 10)
	}
	return m.scenes, m.err
}

func (m *mockLister) DetectWithEvents(ctx context.Context, req appdetection.SceneRequest, events appdetection.EventFactory) ([]video.Scene, []detection.Event, error) {
	m.withEvents = true
	scenes, err := m.DetectScenes(ctx, req)
	return scenes, m.events, err
}

func mustScene(t *testing.T, start, end int) video.Scene {
	t.Helper()
	s, err := video.NewScene(start, end, 30)
	if err != nil {
		t.Fatalf("NewScene(%d, %d): %v", start, end, err)
	}
	return s
}

func TestRunScenesWithDependencies(t *testing.T) {
	lister := &mockLister{scenes: []video.Scene{mustScene(t, 0, 450), mustScene(t, 450, 900)}}
	progress := &recordingProgress{}
	var out bytes.Buffer

	err := RunScenesWithDependencies(context.Background(), lister, "/videos/movie.mp4", appdetection.Options{FrameSkip: 2}, nil, progress, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lister.req.InputPath != "/videos/movie.mp4" || lister.req.Options.FrameSkip != 2 {
		t.Errorf("unexpected request: %+v", lister.req)
	}
	if progress.updates != 1 || !progress.finished {
		t.Errorf("progress not driven: %+v", progress)
	}
	if lister.withEvents {
		t.Error("markers were not requested")
	}
	for _, want := range []string{"Found 2 scenes in movie.mp4", "00:00:15.000", "00:00:30.000"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "marker") {
		t.Errorf("unexpected marker output:\n%s", out.String())
	}
}

func TestRunScenesWithDependencies_Markers(t *testing.T) {
	lister := &mockLister{
		scenes: []video.Scene{mustScene(t, 0, 450), mustScene(t, 450, 900)},
		events: []detection.Event{{StartFrame: 30, EndFrame: 120, Label: "title"}},
	}
	markers := func(width, height int) ([]detection.EventDetector, error) { return nil, nil }
	var out bytes.Buffer

	err := RunScenesWithDependencies(context.Background(), lister, "movie.mp4", appdetection.Options{}, markers, noProgress{}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !lister.withEvents {
		t.Error("expected event detection")
	}
	for _, want := range []string{"Found 1 marker spans", "title", "00:00:01.000", "00:00:04.000"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunScenesWithDependencies_Error(t *testing.T) {
	lister := &mockLister{err: video.ErrNoFrames}
	progress := &recordingProgress{}

	err := RunScenesWithDependencies(context.Background(), lister, "movie.mp4", appdetection.Options{}, nil, progress, &bytes.Buffer{})
	if !errors.Is(err, video.ErrNoFrames) {
		t.Fatalf("expected ErrNoFrames, got %v", err)
	}
	if !progress.finished {
		t.Error("progress should be finished on failure")
	}
}

type mockMatcher struct {
	result *process.MatchResult
	err    error
	in     process.MatchInput
}

func (m *mockMatcher) Match(ctx context.Context, in process.MatchInput) (*process.MatchResult, error) {
	m.in = in
	return m.result, m.err
}

func TestRunMatchWithDependencies(t *testing.T) {
	first, second := mustScene(t, 0, 450), mustScene(t, 450, 900)
	matcher := &mockMatcher{result: &process.MatchResult{
		Evaluated: []detection.MatchResult{
			{Scene: first, BestDistance: -1, SamplesChecked: 45},
			{Scene: second, Matched: true, MatchedFrame: 460, BestDistance: 0.1, SamplesChecked: 2},
		},
		Relevant: []video.Scene{second},
	}}
	var out bytes.Buffer

	in := process.MatchInput{InputPath: "movie.mp4", FacePath: "face.jpg"}
	if err := RunMatchWithDependencies(context.Background(), matcher, in, noProgress{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if matcher.in.FacePath != "face.jpg" || matcher.in.Detection.Progress == nil {
		t.Errorf("unexpected input: %+v", matcher.in)
	}
	for _, want := range []string{"yes (frame 460)", "0.100", "1 of 2 scenes show the face"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunMatchWithDependencies_Error(t *testing.T) {
	matcher := &mockMatcher{err: &detection.InvalidFaceCountError{Count: 2}}

	err := RunMatchWithDependencies(context.Background(), matcher, process.MatchInput{}, noProgress{}, &bytes.Buffer{})
	var faceErr *detection.InvalidFaceCountError
	if !errors.As(err, &faceErr) {
		t.Fatalf("expected InvalidFaceCountError, got %v", err)
	}
}

type mockExtractor struct {
	result *process.Result
	err    error
	in     process.Input
}

func (m *mockExtractor) Process(ctx context.Context, in process.Input) (*process.Result, error) {
	m.in = in
	if in.ExportProgress != nil {
		in.ExportProgress(1, 1)
	}
	return m.result, m.err
}

func TestRunExtractWithDependencies(t *testing.T) {
	scene := mustScene(t, 450, 900)
	job, err := export.NewJob(1, scene, "out")
	if err != nil {
		t.Fatal(err)
	}
	okReport := &export.Report{Dir: "out", Outcomes: []export.Outcome{{Job: job, OutputPath: "out/scene_1.mp4"}}}
	failedReport := &export.Report{Dir: "out", Outcomes: []export.Outcome{
		{Job: job, OutputPath: "out/scene_1.mp4"},
		{Job: job, Err: errors.New("mux failed")},
	}}

	tests := []struct {
		name      string
		extractor *mockExtractor
		wantErr   string
		wantOut   string
	}{
		{
			name:      "success",
			extractor: &mockExtractor{result: &process.Result{Report: okReport}},
		},
		{
			name: "prints upload links",
			extractor: &mockExtractor{result: &process.Result{
				Report:  okReport,
				Uploads: []distribution.UploadResult{{FileName: "scene_1.mp4", ShareableURL: "https://drive/1"}},
			}},
			wantOut: "scene_1.mp4: https://drive/1",
		},
		{
			name:      "failed scenes make the run fail",
			extractor: &mockExtractor{result: &process.Result{Report: failedReport}},
			wantErr:   "1 of 2 scenes failed to export",
		},
		{
			name: "upload failure keeps partial links",
			extractor: &mockExtractor{
				result: &process.Result{
					Report:  okReport,
					Uploads: []distribution.UploadResult{{FileName: "scene_1.mp4", ShareableURL: "https://drive/1"}},
				},
				err: errors.New("upload failed: quota"),
			},
			wantErr: "quota",
			wantOut: "https://drive/1",
		},
		{
			name:      "workflow failure",
			extractor: &mockExtractor{err: &export.FilesAlreadyExistError{Dir: "out", Files: []string{"scene_1.mp4"}}},
			wantErr:   "already contains",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			detecting, exporting := &recordingProgress{}, &recordingProgress{}
			in := process.Input{MatchInput: process.MatchInput{InputPath: "movie.mp4"}, OutputDir: "out"}

			err := RunExtractWithDependencies(context.Background(), tt.extractor, in, detecting, exporting, &out)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out.String())
			}
			if !detecting.finished || !exporting.finished {
				t.Error("progress bars should be finished")
			}
			if tt.extractor.in.Detection.Progress == nil {
				t.Error("detection progress not wired")
			}
		})
	}
}

type mockClipLister struct {
	names []string
	err   error
}

func (m *mockClipLister) Matching(dir string, pattern *regexp.Regexp) ([]string, error) {
	var names []string
	for _, n := range m.names {
		if pattern.MatchString(n) {
			names = append(names, n)
		}
	}
	return names, m.err
}

type mockUploader struct {
	paths   []string
	results []distribution.UploadResult
	err     error
}

func (m *mockUploader) UploadClips(ctx context.Context, paths []string) ([]distribution.UploadResult, error) {
	m.paths = paths
	return m.results, m.err
}

func TestRunUploadWithDependencies(t *testing.T) {
	lister := &mockClipLister{names: []string{"scene_10.mp4", "scene_2.mp4", "scene_2_temp.mp4", "notes.txt"}}
	uploader := &mockUploader{results: []distribution.UploadResult{
		{FileName: "scene_2.mp4", ShareableURL: "https://drive/2"},
		{FileName: "scene_10.mp4", ShareableURL: "https://drive/10"},
	}}
	var out bytes.Buffer

	if err := RunUploadWithDependencies(context.Background(), lister, uploader, "clips", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{filepath.Join("clips", "scene_2.mp4"), filepath.Join("clips", "scene_10.mp4")}
	if len(uploader.paths) != len(want) {
		t.Fatalf("uploaded %v, want %v", uploader.paths, want)
	}
	for i := range want {
		if uploader.paths[i] != want[i] {
			t.Errorf("path %d = %s, want %s", i, uploader.paths[i], want[i])
		}
	}
	if !strings.Contains(out.String(), "scene_10.mp4: https://drive/10") || !strings.Contains(out.String(), "Upload complete!") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunUploadWithDependencies_Errors(t *testing.T) {
	tests := []struct {
		name     string
		lister   *mockClipLister
		uploader *mockUploader
		wantErr  string
	}{
		{"no clips", &mockClipLister{names: []string{"scene_1_temp.mp4"}}, &mockUploader{}, "no scene clips found"},
		{"list failure", &mockClipLister{err: errors.New("permission denied")}, &mockUploader{}, "permission denied"},
		{"upload failure", &mockClipLister{names: []string{"scene_1.mp4"}}, &mockUploader{err: errors.New("quota")}, "upload failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunUploadWithDependencies(context.Background(), tt.lister, tt.uploader, "clips", &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRunConfigShowWithDependencies(t *testing.T) {
	var out bytes.Buffer
	if err := RunConfigShowWithDependencies(config.Default(), "config/config.yaml", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"# config/config.yaml", "output_directory: scenes", "tolerance: 0.7"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func newFlagCommand(t *testing.T, args ...string) (*cobra.Command, *sceneFlags, *matchFlags) {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	sf, mf := &sceneFlags{}, &matchFlags{}
	sf.register(c)
	mf.register(c)
	if err := c.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return c, sf, mf
}

func TestSceneFlags(t *testing.T) {
	c, sf, _ := newFlagCommand(t, "--input", "movie.mp4", "--frame-skip", "2", "--detector", "hash", "--duration", "90", "--end-time", "")
	d := config.Default().Detection
	d.Downscale = 3
	sf.apply(c, &d)

	if d.FrameSkip != 2 || d.Detector != "hash" {
		t.Errorf("flags not applied: %+v", d)
	}
	if d.Downscale != 3 {
		t.Errorf("unset flag overrode downscale: %d", d.Downscale)
	}

	opts, err := sf.options(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Duration == nil || *opts.Duration != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", opts.Duration)
	}
	if opts.EndTime != nil {
		t.Errorf("EndTime = %v, want nil", *opts.EndTime)
	}
	if opts.QueueSize != d.QueueSize || opts.FrameSkip != 2 || opts.Downscale != 3 {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestSceneFlags_InvalidTimecode(t *testing.T) {
	_, sf, _ := newFlagCommand(t, "--end-time", "1:2")
	if _, err := sf.options(config.Default().Detection); err == nil || !strings.Contains(err.Error(), "--end-time") {
		t.Errorf("expected --end-time error, got %v", err)
	}
}

func TestMatchFlags(t *testing.T) {
	c, _, mf := newFlagCommand(t, "--face", "face.jpg", "--tolerance", "0.5")
	opts := mf.options(c, config.Default().Matching)

	want := detection.MatchOptions{Tolerance: 0.5, Frequency: detection.DefaultFrequency, Quality: detection.DefaultQuality}
	if opts != want {
		t.Errorf("options = %+v, want %+v", opts, want)
	}
}

type scriptedPrompter struct {
	inputs   map[string]string
	confirms map[string]bool
	asked    []string
}

func (p *scriptedPrompter) Input(message string, defaultValue string) (string, error) {
	p.asked = append(p.asked, message)
	if v, ok := p.inputs[message]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func (p *scriptedPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	p.asked = append(p.asked, message)
	if v, ok := p.confirms[message]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func TestRunSetupWithPrompter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.yaml")
	prompter := &scriptedPrompter{
		inputs: map[string]string{
			"Where should exported scenes go?":  "/data/scenes",
			"Cut detector (content or hash)?":   "hash",
			"Google Drive folder ID for clips?": "folder-123",
		},
		confirms: map[string]bool{"Upload clips to Google Drive?": true},
	}
	var out bytes.Buffer

	if err := RunSetupWithPrompter(prompter, path, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("saved config does not load: %v", err)
	}
	if cfg.Paths.OutputDirectory != "/data/scenes" || cfg.Detection.Detector != "hash" || cfg.Google.FolderID != "folder-123" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.FFmpeg.Path != "ffmpeg" {
		t.Errorf("default ffmpeg path lost: %q", cfg.FFmpeg.Path)
	}
	if !strings.Contains(out.String(), "Configuration saved to") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunSetupWithPrompter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		inputs  map[string]string
		wantErr string
	}{
		{
			name:    "missing folder",
			wantErr: "folder ID is required",
		},
		{
			name: "invalid detector",
			inputs: map[string]string{
				"Cut detector (content or hash)?":   "edges",
				"Google Drive folder ID for clips?": "folder-123",
			},
			wantErr: "detection.detector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			prompter := &scriptedPrompter{
				inputs:   tt.inputs,
				confirms: map[string]bool{"Upload clips to Google Drive?": true},
			}
			err := RunSetupWithPrompter(prompter, path, &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if _, statErr := os.Stat(path); statErr == nil {
				t.Error("config should not be written on error")
			}
		})
	}
}

func TestRunSetupWithPrompter_KeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("paths:\n  output_directory: old\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer

	if err := RunSetupWithPrompter(&scriptedPrompter{}, path, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "old") || !strings.Contains(out.String(), "Setup cancelled.") {
		t.Errorf("existing config changed or not reported: %s / %s", data, out.String())
	}
}
