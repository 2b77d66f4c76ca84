package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	appdetection "face-scenes/application/detection"
	"face-scenes/domain/detection"
	"face-scenes/domain/video"
	infradetection "face-scenes/infrastructure/detection"
)

var (
	scenesFlags           sceneFlags
	scenesMarkers         []string
	scenesMarkerThreshold float64
)

var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "List the scenes of a video",
	Long: `Detect hard cuts in a video and print the resulting scenes.

Cut lists of complete runs are cached, so listing the same video again with
the same detector settings skips decoding. Use --no-cache to force a rerun.

With --marker the frames are also searched for a template image, such as a
title card or a channel logo cut from one frame, and the spans in which it
is visible are listed after the scenes. Markers need an OpenCV build.

Example:
  face-scenes scenes --input movie.mp4
  face-scenes scenes --input movie.mp4 --detector hash --end-time 00:10:00
  face-scenes scenes --input movie.mp4 --marker title.png`,
	RunE: runScenes,
}

func init() {
	rootCmd.AddCommand(scenesCmd)
	scenesFlags.register(scenesCmd)
	scenesCmd.Flags().StringArrayVar(&scenesMarkers, "marker", nil, "Template image to search for (can be repeated)")
	scenesCmd.Flags().Float64Var(&scenesMarkerThreshold, "marker-threshold", infradetection.DefaultMarkerThreshold, "Match score a marker must reach")
}

// SceneLister detects the complete scene list of a video
type SceneLister interface {
	DetectScenes(ctx context.Context, req appdetection.SceneRequest) ([]video.Scene, error)
	DetectWithEvents(ctx context.Context, req appdetection.SceneRequest, events appdetection.EventFactory) ([]video.Scene, []detection.Event, error)
}

func runScenes(cmd *cobra.Command, args []string) error {
	c, err := GetConfig()
	if err != nil {
		return err
	}
	scenesFlags.apply(cmd, &c.Detection)
	opts, err := scenesFlags.options(c.Detection)
	if err != nil {
		return err
	}

	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(c, logger, !scenesFlags.noCache)
	if err != nil {
		return err
	}

	var markers appdetection.EventFactory
	if len(scenesMarkers) > 0 {
		markers = markerFactory(scenesMarkers, scenesMarkerThreshold)
	}
	return RunScenesWithDependencies(cmd.Context(), a.scenes, scenesFlags.input, opts, markers, newProgress("Detecting"), DefaultOutput)
}

// markerFactory loads one template marker per image, scaled for the video's width
func markerFactory(paths []string, threshold float64) appdetection.EventFactory {
	return func(width, height int) ([]detection.EventDetector, error) {
		markers := make([]detection.EventDetector, 0, len(paths))
		for _, path := range paths {
			m, err := infradetection.NewTemplateMarker(path, width, infradetection.WithMarkerThreshold(threshold))
			if err != nil {
				for _, loaded := range markers {
					if c, ok := loaded.(io.Closer); ok {
						_ = c.Close()
					}
				}
				return nil, err
			}
			markers = append(markers, m)
		}
		return markers, nil
	}
}

// RunScenesWithDependencies runs the scenes command with injected dependencies (for testing)
func RunScenesWithDependencies(
	ctx context.Context,
	lister SceneLister,
	inputPath string,
	opts appdetection.Options,
	markers appdetection.EventFactory,
	progress Progress,
	output io.Writer,
) error {
	opts.Progress = progress.Update
	req := appdetection.SceneRequest{
		InputPath: inputPath,
		Options:   opts,
	}

	var (
		scenes []video.Scene
		events []detection.Event
		err    error
	)
	if markers != nil {
		scenes, events, err = lister.DetectWithEvents(ctx, req, markers)
	} else {
		scenes, err = lister.DetectScenes(ctx, req)
	}
	progress.Finish()
	if err != nil {
		return fmt.Errorf("scene detection failed: %w", err)
	}

	fmt.Fprintf(output, "Found %d scenes in %s\n", len(scenes), filepath.Base(inputPath))
	if len(scenes) > 0 {
		fmt.Fprintln(output, renderScenes(scenes))
	}
	if markers != nil {
		fmt.Fprintf(output, "Found %d marker spans\n", len(events))
		if len(events) > 0 && len(scenes) > 0 {
			fmt.Fprintln(output, renderEvents(events, scenes[0].FPS))
		}
	}
	return nil
}
