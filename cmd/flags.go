package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	appdetection "face-scenes/application/detection"
	"face-scenes/domain/detection"
	"face-scenes/domain/video"
	"face-scenes/infrastructure/config"
)

// sceneFlags are the detection flags shared by scenes, match and extract
type sceneFlags struct {
	input     string
	frameSkip int
	downscale int
	duration  string
	endTime   string
	detector  string
	threshold float64
	noCache   bool
}

func (f *sceneFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.input, "input", "", "Path to the video file (required)")
	c.Flags().IntVar(&f.frameSkip, "frame-skip", 0, "Frames to skip between detector samples")
	c.Flags().IntVar(&f.downscale, "downscale", 0, "Divide frame size by this factor (0 = automatic)")
	c.Flags().StringVar(&f.duration, "duration", "", "Stop after this long (HH:MM:SS[.mmm] or seconds)")
	c.Flags().StringVar(&f.endTime, "end-time", "", "Stop at this position (HH:MM:SS[.mmm] or seconds)")
	c.Flags().StringVar(&f.detector, "detector", "", "Cut detector: content or hash")
	c.Flags().Float64Var(&f.threshold, "threshold", 0, "Cut threshold of the detector")
	c.Flags().BoolVar(&f.noCache, "no-cache", false, "Ignore and do not update the cut cache")
	c.MarkFlagRequired("input")
}

// apply copies explicitly set flags over the configured detection settings
func (f *sceneFlags) apply(c *cobra.Command, d *config.DetectionConfig) {
	flags := c.Flags()
	if flags.Changed("frame-skip") {
		d.FrameSkip = f.frameSkip
	}
	if flags.Changed("downscale") {
		d.Downscale = f.downscale
	}
	if flags.Changed("detector") {
		d.Detector = f.detector
	}
	if flags.Changed("threshold") {
		d.Threshold = f.threshold
	}
}

// options builds the pipeline options for one run
func (f *sceneFlags) options(d config.DetectionConfig) (appdetection.Options, error) {
	opts := appdetection.Options{
		FrameSkip: d.FrameSkip,
		Downscale: d.Downscale,
		QueueSize: d.QueueSize,
	}
	if f.duration != "" {
		v, err := video.ParseTimecode(f.duration)
		if err != nil {
			return opts, fmt.Errorf("invalid --duration: %w", err)
		}
		opts.Duration = &v
	}
	if f.endTime != "" {
		v, err := video.ParseTimecode(f.endTime)
		if err != nil {
			return opts, fmt.Errorf("invalid --end-time: %w", err)
		}
		opts.EndTime = &v
	}
	return opts, nil
}

// matchFlags are the face filter flags shared by match and extract
type matchFlags struct {
	face      string
	tolerance float64
	frequency int
	quality   float64
}

func (f *matchFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.face, "face", "", "Path to an image showing exactly one face (required)")
	c.Flags().Float64Var(&f.tolerance, "tolerance", 0, "Maximum face distance counted as a match")
	c.Flags().IntVar(&f.frequency, "frequency", 0, "Sample every n-th frame of a scene")
	c.Flags().Float64Var(&f.quality, "quality", 0, "Scale factor in (0, 1] applied before face search")
	c.MarkFlagRequired("face")
}

// options merges explicitly set flags with the configured matching settings
func (f *matchFlags) options(c *cobra.Command, m config.MatchingConfig) detection.MatchOptions {
	opts := detection.MatchOptions{
		Tolerance: m.Tolerance,
		Frequency: m.Frequency,
		Quality:   m.Quality,
	}
	flags := c.Flags()
	if flags.Changed("tolerance") {
		opts.Tolerance = f.tolerance
	}
	if flags.Changed("frequency") {
		opts.Frequency = f.frequency
	}
	if flags.Changed("quality") {
		opts.Quality = f.quality
	}
	return opts
}
