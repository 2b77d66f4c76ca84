package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file is looked up when --config is not given
const DefaultPath = "config/config.yaml"

// EnvPrefix prefixes every environment override
const EnvPrefix = "FACE_SCENES_"

// Config represents the complete application configuration
type Config struct {
	Paths     PathsConfig     `yaml:"paths"     envPrefix:"PATHS_"`
	Detection DetectionConfig `yaml:"detection" envPrefix:"DETECTION_"`
	Matching  MatchingConfig  `yaml:"matching"  envPrefix:"MATCHING_"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"    envPrefix:"FFMPEG_"`
	Backend   BackendConfig   `yaml:"backend"   envPrefix:"BACKEND_"`
	Logging   LoggingConfig   `yaml:"logging"   envPrefix:"LOGGING_"`
	Google    GoogleConfig    `yaml:"google"    envPrefix:"GOOGLE_"`
	Cache     CacheConfig     `yaml:"cache"     envPrefix:"CACHE_"`
}

// PathsConfig contains default locations
type PathsConfig struct {
	OutputDirectory string `yaml:"output_directory" env:"OUTPUT_DIRECTORY"`
	LockDirectory   string `yaml:"lock_directory"   env:"LOCK_DIRECTORY"`
}

// DetectionConfig tunes the scene detection pipeline
type DetectionConfig struct {
	Detector       string  `yaml:"detector"         env:"DETECTOR"`
	Threshold      float64 `yaml:"threshold"        env:"THRESHOLD"`
	MinSceneLength int     `yaml:"min_scene_length" env:"MIN_SCENE_LENGTH"`
	FrameSkip      int     `yaml:"frame_skip"       env:"FRAME_SKIP"`
	// Downscale 0 picks a factor from the video width
	Downscale int `yaml:"downscale"  env:"DOWNSCALE"`
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`
}

// MatchingConfig tunes the face filter
type MatchingConfig struct {
	Tolerance float64 `yaml:"tolerance" env:"TOLERANCE"`
	Frequency int     `yaml:"frequency" env:"FREQUENCY"`
	Quality   float64 `yaml:"quality"   env:"QUALITY"`
}

// FFmpegConfig locates the ffmpeg binary
type FFmpegConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// BackendConfig selects the decoding backend and the face model files
type BackendConfig struct {
	Video        string `yaml:"video"          env:"VIDEO"`
	CascadePath  string `yaml:"cascade_path"   env:"CASCADE_PATH"`
	EmbedderPath string `yaml:"embedder_path"  env:"EMBEDDER_PATH"`
	MinFaceSize  int    `yaml:"min_face_size"  env:"MIN_FACE_SIZE"`
}

// LoggingConfig selects level and encoding of the structured log
type LoggingConfig struct {
	Level  string `yaml:"level"  env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// GoogleConfig contains Google API settings
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file" env:"CREDENTIALS_FILE"`
	TokenFile       string `yaml:"token_file"       env:"TOKEN_FILE"`
	FolderID        string `yaml:"folder_id"        env:"FOLDER_ID"`
}

// CacheConfig controls the cut cache
type CacheConfig struct {
	Disabled bool   `yaml:"disabled" env:"DISABLED"`
	Path     string `yaml:"path"     env:"PATH"`
}

// Load reads the YAML file at path, applies environment overrides and defaults,
// and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any FACE_SCENES_* variables that are set
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal renders cfg as YAML
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	return data, nil
}
