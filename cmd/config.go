package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"face-scenes/infrastructure/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and FACE_SCENES_* environment
overrides have been applied.

Example:
  face-scenes config show
  FACE_SCENES_MATCHING_TOLERANCE=0.6 face-scenes config show`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	c, err := GetConfig()
	if err != nil {
		return err
	}
	return RunConfigShowWithDependencies(c, cfgFile, DefaultOutput)
}

// RunConfigShowWithDependencies prints cfg as YAML (for testing)
func RunConfigShowWithDependencies(cfg *config.Config, configPath string, out io.Writer) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# %s\n", configPath)
	_, err = out.Write(data)
	return err
}
