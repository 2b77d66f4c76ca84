package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"face-scenes/infrastructure/config"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through the output location, the scene detector,
the ffmpeg binary, the face model files and the optional Google Drive
upload settings. Values left empty keep their defaults.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, cfgFile, DefaultOutput)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, out io.Writer) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Welcome to face-scenes setup!")
	fmt.Fprintln(out)

	// Start from defaults so unanswered prompts keep sensible values
	cfg := config.Default()

	if err := promptPaths(prompter, cfg); err != nil {
		return err
	}
	if err := promptDetection(prompter, cfg); err != nil {
		return err
	}
	if err := promptBackend(prompter, cfg); err != nil {
		return err
	}
	if err := promptGoogle(prompter, cfg); err != nil {
		return err
	}

	// Validate and save configuration
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	return nil
}

// ask prompts for a value and keeps current when the answer is empty
func ask(prompter Prompter, message string, current *string) error {
	value, err := prompter.Input(message, *current)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if value != "" {
		*current = value
	}
	return nil
}

func promptPaths(prompter Prompter, cfg *config.Config) error {
	return ask(prompter, "Where should exported scenes go?", &cfg.Paths.OutputDirectory)
}

func promptDetection(prompter Prompter, cfg *config.Config) error {
	return ask(prompter, "Cut detector (content or hash)?", &cfg.Detection.Detector)
}

func promptBackend(prompter Prompter, cfg *config.Config) error {
	if err := ask(prompter, "Path to the ffmpeg binary?", &cfg.FFmpeg.Path); err != nil {
		return err
	}
	if err := ask(prompter, "Video backend (ffmpeg or opencv)?", &cfg.Backend.Video); err != nil {
		return err
	}
	if err := ask(prompter, "Path to the face cascade model?", &cfg.Backend.CascadePath); err != nil {
		return err
	}
	return ask(prompter, "Path to the face embedding model?", &cfg.Backend.EmbedderPath)
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	upload, err := prompter.Confirm("Upload clips to Google Drive?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !upload {
		return nil
	}

	// Service account or OAuth client file, detected when uploading
	if err := ask(prompter, "Path to Google credentials file?", &cfg.Google.CredentialsFile); err != nil {
		return err
	}
	if err := ask(prompter, "Where should the OAuth token be stored?", &cfg.Google.TokenFile); err != nil {
		return err
	}

	folder, err := prompter.Input("Google Drive folder ID for clips?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if folder == "" {
		return fmt.Errorf("folder ID is required")
	}
	cfg.Google.FolderID = folder
	return nil
}
