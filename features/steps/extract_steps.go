//go:build integration

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"go.uber.org/zap"

	appdetection "face-scenes/application/detection"
	appexport "face-scenes/application/export"
	"face-scenes/application/process"
	"face-scenes/cmd"
	domaindetection "face-scenes/domain/detection"
	"face-scenes/domain/export"
	infradetection "face-scenes/infrastructure/detection"
	"face-scenes/infrastructure/filesystem"
)

// extractContext holds test state for extract scenarios
type extractContext struct {
	tempDir   string
	outputDir string
	lockDir   string

	opener  *syntheticOpener
	encoder *colorEncoder

	output *bytes.Buffer
	result *process.Result
	err    error
}

// SharedExtractContext is reset before each scenario via Before hook
var SharedExtractContext = &extractContext{}

func InitializeExtractScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedExtractContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "extract-test-*")
		if err != nil {
			return c, err
		}
		*testCtx = extractContext{
			tempDir:   tempDir,
			outputDir: filepath.Join(tempDir, "scenes"),
			lockDir:   filepath.Join(tempDir, "locks"),
			encoder:   &colorEncoder{referenceFaces: 1},
			output:    &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a (\d+) second video at (\d+) fps with a cut at (\d+) seconds$`, testCtx.aVideoWithACut)
	ctx.Step(`^the face appears only after the cut$`, testCtx.theFaceAppearsAfterTheCut)
	ctx.Step(`^the face never appears$`, testCtx.theFaceNeverAppears)
	ctx.Step(`^the reference image shows (\d+) faces$`, testCtx.theReferenceImageShowsFaces)
	ctx.Step(`^the output directory already contains "([^"]*)"$`, testCtx.theOutputDirectoryAlreadyContains)

	ctx.Step(`^I extract the scenes showing the face$`, testCtx.iExtractTheScenes)
	ctx.Step(`^I list the scenes$`, testCtx.iListTheScenes)

	ctx.Step(`^(\d+) scenes are detected$`, testCtx.scenesAreDetected)
	ctx.Step(`^(\d+) scenes? shows? the face$`, testCtx.scenesShowTheFace)
	ctx.Step(`^the relevant scene runs from (\d+) to (\d+) seconds$`, testCtx.theRelevantSceneRuns)
	ctx.Step(`^the output directory contains only "([^"]*)"$`, testCtx.theOutputDirectoryContainsOnly)
	ctx.Step(`^the output directory contains no clips$`, testCtx.theOutputDirectoryContainsNoClips)
	ctx.Step(`^the output mentions "([^"]*)"$`, testCtx.theOutputMentions)
	ctx.Step(`^the extraction fails because the directory already contains files$`, testCtx.theExtractionFailsOnExistingFiles)
	ctx.Step(`^the extraction fails with an invalid face count of (\d+)$`, testCtx.theExtractionFailsWithFaceCount)
	ctx.Step(`^no video was opened$`, testCtx.noVideoWasOpened)
}

func (e *extractContext) aVideoWithACut(seconds, fps, cut int) error {
	e.opener = &syntheticOpener{video: syntheticVideo{
		frames: seconds * fps,
		fps:    float64(fps),
		cutAt:  cut * fps,
	}}
	return nil
}

func (e *extractContext) theFaceAppearsAfterTheCut() error {
	e.encoder.faceInFrames = true
	return nil
}

func (e *extractContext) theFaceNeverAppears() error {
	e.encoder.faceInFrames = false
	return nil
}

func (e *extractContext) theReferenceImageShowsFaces(n int) error {
	e.encoder.referenceFaces = n
	return nil
}

func (e *extractContext) theOutputDirectoryAlreadyContains(name string) error {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.outputDir, name), []byte("old"), 0644)
}

func (e *extractContext) detectionService() *appdetection.Service {
	factory := func() ([]domaindetection.CutDetector, error) {
		return infradetection.NewDetectors(infradetection.Settings{Name: infradetection.Content})
	}
	return appdetection.NewService(e.opener, factory, appdetection.WithServiceLogger(zap.NewNop()))
}

func (e *extractContext) iExtractTheScenes() error {
	exporter := appexport.NewService(e.opener, fileWriters{}, fileTranscoder{}, filesystem.NewWorkspace(e.lockDir))
	svc := process.NewService(e.detectionService(), e.opener, e.encoder, loadReference, exporter, e.output,
		process.WithToolChecker(fileTranscoder{}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	e.result, e.err = svc.Process(ctx, process.Input{
		MatchInput: process.MatchInput{
			InputPath: filepath.Join(e.tempDir, "movie.mp4"),
			FacePath:  filepath.Join(e.tempDir, "face.jpg"),
			Matching:  domaindetection.DefaultMatchOptions(),
		},
		OutputDir: e.outputDir,
	})
	return nil
}

func (e *extractContext) iListTheScenes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	e.err = cmd.RunScenesWithDependencies(ctx, e.detectionService(), "movie.mp4", appdetection.Options{}, nil, silentProgress{}, e.output)
	return e.err
}

func (e *extractContext) succeeded() error {
	if e.err != nil {
		return fmt.Errorf("extraction failed: %v\noutput:\n%s", e.err, e.output.String())
	}
	return nil
}

func (e *extractContext) scenesAreDetected(n int) error {
	if err := e.succeeded(); err != nil {
		return err
	}
	if got := len(e.result.Evaluated); got != n {
		return fmt.Errorf("expected %d scenes, got %d", n, got)
	}
	return nil
}

func (e *extractContext) scenesShowTheFace(n int) error {
	if err := e.succeeded(); err != nil {
		return err
	}
	if got := len(e.result.Relevant); got != n {
		return fmt.Errorf("expected %d relevant scenes, got %d", n, got)
	}
	return nil
}

func (e *extractContext) theRelevantSceneRuns(from, to int) error {
	if err := e.scenesShowTheFace(1); err != nil {
		return err
	}
	s := e.result.Relevant[0]
	if s.Start() != time.Duration(from)*time.Second || s.End() != time.Duration(to)*time.Second {
		return fmt.Errorf("expected scene %ds-%ds, got %s", from, to, s)
	}
	return nil
}

func (e *extractContext) outputFiles() ([]string, error) {
	entries, err := os.ReadDir(e.outputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (e *extractContext) theOutputDirectoryContainsOnly(name string) error {
	names, err := e.outputFiles()
	if err != nil {
		return err
	}
	if len(names) != 1 || names[0] != name {
		return fmt.Errorf("expected only %s, found %v", name, names)
	}
	return nil
}

func (e *extractContext) theOutputDirectoryContainsNoClips() error {
	names, err := e.outputFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		if export.OutputPattern.MatchString(name) {
			return fmt.Errorf("unexpected clip %s", name)
		}
	}
	return nil
}

func (e *extractContext) theOutputMentions(text string) error {
	if !strings.Contains(e.output.String(), text) {
		return fmt.Errorf("output does not mention %q:\n%s", text, e.output.String())
	}
	return nil
}

func (e *extractContext) theExtractionFailsOnExistingFiles() error {
	var existErr *export.FilesAlreadyExistError
	if !errors.As(e.err, &existErr) {
		return fmt.Errorf("expected FilesAlreadyExistError, got %v", e.err)
	}
	return nil
}

func (e *extractContext) theExtractionFailsWithFaceCount(n int) error {
	var faceErr *domaindetection.InvalidFaceCountError
	if !errors.As(e.err, &faceErr) {
		return fmt.Errorf("expected InvalidFaceCountError, got %v", e.err)
	}
	if faceErr.Count != n {
		return fmt.Errorf("expected %d faces, got %d", n, faceErr.Count)
	}
	return nil
}

func (e *extractContext) noVideoWasOpened() error {
	if n := e.opener.Opens(); n != 0 {
		return fmt.Errorf("expected no decoding, video was opened %d times", n)
	}
	return nil
}

type silentProgress struct{}

func (silentProgress) Update(done, total int) {}
func (silentProgress) Finish()                {}
