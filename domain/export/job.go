package export

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"face-scenes/domain/video"
)

// OutputPattern matches every file an export writes into its directory
var OutputPattern = regexp.MustCompile(`^scene_\d+(_(temp|audio))?\.mp4$`)

// ClipPattern matches finished clips only
var ClipPattern = regexp.MustCompile(`^scene_(\d+)\.mp4$`)

// ClipNumber returns n for a clip named scene_<n>.mp4
func ClipNumber(name string) (int, bool) {
	m := ClipPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Job is one scene scheduled for export as scene_<Number>.mp4
type Job struct {
	Number int
	Scene  video.Scene
	Dir    string
}

// NewJob creates a Job with validation
func NewJob(number int, scene video.Scene, dir string) (*Job, error) {
	if number < 1 {
		return nil, fmt.Errorf("scene number must start at 1, got %d", number)
	}
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := scene.Validate(); err != nil {
		return nil, fmt.Errorf("scene %d: %w", number, err)
	}
	return &Job{Number: number, Scene: scene, Dir: dir}, nil
}

// OutputFilename returns scene_<n>.mp4
func (j *Job) OutputFilename() string {
	return fmt.Sprintf("scene_%d.mp4", j.Number)
}

// OutputPath returns the final clip path
func (j *Job) OutputPath() string {
	return filepath.Join(j.Dir, j.OutputFilename())
}

// VideoTempPath returns the path of the video-only intermediate
func (j *Job) VideoTempPath() string {
	return filepath.Join(j.Dir, fmt.Sprintf("scene_%d_temp.mp4", j.Number))
}

// AudioTempPath returns the path of the audio-only intermediate
func (j *Job) AudioTempPath() string {
	return filepath.Join(j.Dir, fmt.Sprintf("scene_%d_audio.mp4", j.Number))
}

// FilesAlreadyExistError is returned when an output directory holds files from a previous export
type FilesAlreadyExistError struct {
	Dir   string
	Files []string
}

func (e *FilesAlreadyExistError) Error() string {
	quoted := make([]string, len(e.Files))
	for i, name := range e.Files {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("the directory %q already contains:\n%s", e.Dir, strings.Join(quoted, ",\n"))
}

// Outcome records what happened to one job
type Outcome struct {
	Job        *Job
	OutputPath string
	Frames     int
	Err        error
}

// Succeeded reports whether the final clip was produced
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Report summarises a whole export batch
type Report struct {
	Dir      string
	Outcomes []Outcome
}

// Exported returns the paths of the clips that were written
func (r *Report) Exported() []string {
	var paths []string
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			paths = append(paths, o.OutputPath)
		}
	}
	return paths
}

// Failed returns the outcomes that did not produce a clip
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	return failed
}
