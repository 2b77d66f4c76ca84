package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"face-scenes/infrastructure/config"
	"face-scenes/infrastructure/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
)

// DefaultOutput receives user-facing command output
var DefaultOutput io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "face-scenes",
	Short: "Extract the scenes of a video that show a given face",
	Long: `face-scenes splits a video into scenes at hard cuts, keeps the scenes
in which a reference face appears and writes each of them out as a clip
with its audio:

  - Detect scenes with a content or hash cut detector
  - Sample every scene for the reference face
  - Export matching scenes as scene_<n>.mp4
  - Optionally upload the clips to Google Drive

Example:
  face-scenes extract --input movie.mp4 --face actor.jpg --output scenes/`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}
	cfg, cfgErr = config.Load(cfgFile)
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cfgFile, cfgErr)
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// newLogger builds the run's logger, tagged with a fresh run id
func newLogger(c *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(c.Logging.Level, c.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("run_id", uuid.NewString())), nil
}
