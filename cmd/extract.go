package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"face-scenes/application/process"
)

var (
	extractScenes sceneFlags
	extractFace   matchFlags
	extractOutput string
	extractUpload bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Export the scenes of a video that show a face",
	Long: `Run the complete workflow:
1. Check that the output directory holds no earlier export
2. Load the reference face
3. Detect scenes and keep those showing the face
4. Export each kept scene as scene_<n>.mp4 with its audio
5. Upload the clips to Google Drive (with --upload)

Scenes that fail to export are reported and skipped; the remaining scenes
are still written.

Example:
  face-scenes extract --input movie.mp4 --face actor.jpg --output scenes/
  face-scenes extract --input movie.mp4 --face actor.jpg --output scenes/ --upload`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractScenes.register(extractCmd)
	extractFace.register(extractCmd)
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "Directory for the clips (defaults to paths.output_directory)")
	extractCmd.Flags().BoolVar(&extractUpload, "upload", false, "Upload the exported clips to Google Drive")
}

// Extractor runs the complete workflow
type Extractor interface {
	Process(ctx context.Context, in process.Input) (*process.Result, error)
}

func runExtract(cmd *cobra.Command, args []string) error {
	c, err := GetConfig()
	if err != nil {
		return err
	}
	extractScenes.apply(cmd, &c.Detection)
	detectionOpts, err := extractScenes.options(c.Detection)
	if err != nil {
		return err
	}
	outputDir := extractOutput
	if outputDir == "" {
		outputDir = c.Paths.OutputDirectory
	}

	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(c, logger, !extractScenes.noCache)
	if err != nil {
		return err
	}

	var opts []process.Option
	if extractUpload {
		uploader, err := newUploader(cmd.Context(), c.Google, DefaultOutput)
		if err != nil {
			return err
		}
		opts = append(opts, process.WithUploader(uploader))
	}
	svc, closeModels, err := a.workflow(DefaultOutput, opts...)
	if err != nil {
		return err
	}
	defer closeModels()

	in := process.Input{
		MatchInput: process.MatchInput{
			InputPath: extractScenes.input,
			FacePath:  extractFace.face,
			Detection: detectionOpts,
			Matching:  extractFace.options(cmd, c.Matching),
		},
		OutputDir: outputDir,
		Upload:    extractUpload,
	}
	return RunExtractWithDependencies(cmd.Context(), svc, in, newProgress("Detecting"), newProgress("Exporting"), DefaultOutput)
}

// RunExtractWithDependencies runs the extract command with injected dependencies (for testing)
func RunExtractWithDependencies(
	ctx context.Context,
	extractor Extractor,
	in process.Input,
	detecting Progress,
	exporting Progress,
	output io.Writer,
) error {
	in.Detection.Progress = detecting.Update
	in.ExportProgress = func(done, total int) {
		detecting.Finish()
		exporting.Update(done, total)
	}
	result, err := extractor.Process(ctx, in)
	detecting.Finish()
	exporting.Finish()

	if result != nil {
		for _, u := range result.Uploads {
			fmt.Fprintf(output, "  %s: %s\n", u.FileName, u.ShareableURL)
		}
	}
	if err != nil {
		return err
	}

	if failed := len(result.Report.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d scenes failed to export", failed, len(result.Report.Outcomes))
	}
	return nil
}
