package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"face-scenes/application/process"
)

var (
	matchScenes sceneFlags
	matchFace   matchFlags
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find the scenes of a video that show a face",
	Long: `Detect the scenes of a video and sample each of them for the face in
the reference image. Prints the decision for every scene without writing
any clips.

The reference image must show exactly one face.

Example:
  face-scenes match --input movie.mp4 --face actor.jpg
  face-scenes match --input movie.mp4 --face actor.jpg --tolerance 0.6 --frequency 5`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchScenes.register(matchCmd)
	matchFace.register(matchCmd)
}

// Matcher runs scene detection and the face filter
type Matcher interface {
	Match(ctx context.Context, in process.MatchInput) (*process.MatchResult, error)
}

func runMatch(cmd *cobra.Command, args []string) error {
	c, err := GetConfig()
	if err != nil {
		return err
	}
	matchScenes.apply(cmd, &c.Detection)
	detectionOpts, err := matchScenes.options(c.Detection)
	if err != nil {
		return err
	}

	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(c, logger, !matchScenes.noCache)
	if err != nil {
		return err
	}
	svc, closeModels, err := a.workflow(DefaultOutput)
	if err != nil {
		return err
	}
	defer closeModels()

	in := process.MatchInput{
		InputPath: matchScenes.input,
		FacePath:  matchFace.face,
		Detection: detectionOpts,
		Matching:  matchFace.options(cmd, c.Matching),
	}
	return RunMatchWithDependencies(cmd.Context(), svc, in, newProgress("Matching"), DefaultOutput)
}

// RunMatchWithDependencies runs the match command with injected dependencies (for testing)
func RunMatchWithDependencies(
	ctx context.Context,
	matcher Matcher,
	in process.MatchInput,
	progress Progress,
	output io.Writer,
) error {
	in.Detection.Progress = progress.Update
	result, err := matcher.Match(ctx, in)
	progress.Finish()
	if err != nil {
		return fmt.Errorf("scene matching failed: %w", err)
	}

	if len(result.Evaluated) > 0 {
		fmt.Fprintln(output, renderMatches(result.Evaluated))
	}
	fmt.Fprintf(output, "%d of %d scenes show the face\n", len(result.Relevant), len(result.Evaluated))
	return nil
}
