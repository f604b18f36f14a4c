package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Sampling settings
	Stride    int `yaml:"stride"`
	BatchSize int `yaml:"batch_size"`

	// Frame-diff detector threshold on the 8-bit intensity scale
	DiffThreshold float64 `yaml:"diff_threshold"`

	// Paths
	ScratchDir string `yaml:"scratch_dir"`
	OutputDir  string `yaml:"output_dir"`
	ReportPath string `yaml:"report_path"`

	// Flush a trailing partial batch through the frame-diff detector
	FlushPartial bool `yaml:"flush_partial"`

	// Oracle settings
	Oracle OracleConfig `yaml:"oracle"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`
}

type OracleConfig struct {
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	MaxTokens int    `yaml:"max_tokens"`
	Disabled  bool   `yaml:"disabled"`
}

type FFmpegConfig struct {
	Threads int    `yaml:"threads"`
	Preset  string `yaml:"preset"`
	CRF     int    `yaml:"crf"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.validate()
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) validate() error {
	if c.Stride < 1 {
		return fmt.Errorf("stride must be at least 1, got %d", c.Stride)
	}
	if c.BatchSize < 2 {
		return fmt.Errorf("batch_size must be at least 2, got %d", c.BatchSize)
	}
	if c.DiffThreshold < 0 || c.DiffThreshold > 255 {
		return fmt.Errorf("diff_threshold must be in [0, 255], got %g", c.DiffThreshold)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Stride:        15,
		BatchSize:     4,
		DiffThreshold: 30.0,
		ScratchDir:    "temp_frames",
		OutputDir:     "scenes",
		ReportPath:    "scene_analysis.txt",
		FlushPartial:  true,
		Oracle: OracleConfig{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
			MaxTokens: 100,
		},
		FFmpeg: FFmpegConfig{
			Threads: 0,
			Preset:  "medium",
			CRF:     23,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".scenesplit", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
