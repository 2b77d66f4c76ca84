package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/spf13/cobra"

	"face-scenes/application/process"
	"face-scenes/domain/export"
)

var uploadDir string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload exported clips to Google Drive with public sharing",
	Long: `Upload the scene_<n>.mp4 clips of an earlier export to the configured
Google Drive folder and make each of them readable by anyone with the link.

A clip whose name already exists in the folder replaces the older file.
The whole batch is checked against the Drive storage quota first.

Example:
  face-scenes upload
  face-scenes upload --dir scenes/`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadDir, "dir", "", "Directory holding the clips (defaults to paths.output_directory)")
}

// ClipLister lists file names in a directory
type ClipLister interface {
	Matching(dir string, pattern *regexp.Regexp) ([]string, error)
}

func runUpload(cmd *cobra.Command, args []string) error {
	c, err := GetConfig()
	if err != nil {
		return err
	}
	// Default to the configured output directory
	dir := uploadDir
	if dir == "" {
		dir = c.Paths.OutputDirectory
	}

	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(c, logger, false)
	if err != nil {
		return err
	}
	uploader, err := newUploader(cmd.Context(), c.Google, DefaultOutput)
	if err != nil {
		return err
	}

	return RunUploadWithDependencies(cmd.Context(), a.workspace, uploader, dir, DefaultOutput)
}

// RunUploadWithDependencies runs the upload command with injected dependencies (for testing)
func RunUploadWithDependencies(
	ctx context.Context,
	lister ClipLister,
	uploader process.Uploader,
	dir string,
	output io.Writer,
) error {
	// Find final clips only; temporaries from an aborted run are ignored
	names, err := lister.Matching(dir, export.ClipPattern)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no scene clips found in %s", dir)
	}
	// Upload in scene order, scene_2 before scene_10
	sort.Slice(names, func(i, j int) bool {
		a, _ := export.ClipNumber(names[i])
		b, _ := export.ClipNumber(names[j])
		return a < b
	})

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}

	fmt.Fprintf(output, "Uploading %d clips from %s...\n", len(paths), dir)
	results, err := uploader.UploadClips(ctx, paths)
	for _, r := range results {
		fmt.Fprintf(output, "  %s: %s\n", r.FileName, r.ShareableURL)
	}
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Fprintf(output, "Upload complete!\n")
	return nil
}
