package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Stride != 15 {
		t.Errorf("expected default stride 15, got %d", cfg.Stride)
	}
	if cfg.BatchSize != 4 {
		t.Errorf("expected default batch_size 4, got %d", cfg.BatchSize)
	}
	if cfg.DiffThreshold != 30.0 {
		t.Errorf("expected default diff_threshold 30, got %g", cfg.DiffThreshold)
	}
	if !cfg.FlushPartial {
		t.Error("expected flush_partial to default to true")
	}
	if cfg.Oracle.Model != "gpt-4o-mini" {
		t.Errorf("unexpected default oracle model %q", cfg.Oracle.Model)
	}
	if cfg.Oracle.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("unexpected default api_key_env %q", cfg.Oracle.APIKeyEnv)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
stride: 10
batch_size: 6
diff_threshold: 45.5
output_dir: out
oracle:
  model: gpt-4o
  disabled: true
ffmpeg:
  preset: fast
  crf: 28
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Stride != 10 || cfg.BatchSize != 6 {
		t.Errorf("expected stride 10 / batch 6, got %d / %d", cfg.Stride, cfg.BatchSize)
	}
	if cfg.DiffThreshold != 45.5 {
		t.Errorf("expected diff_threshold 45.5, got %g", cfg.DiffThreshold)
	}
	if cfg.OutputDir != "out" {
		t.Errorf("expected output_dir out, got %q", cfg.OutputDir)
	}
	if cfg.Oracle.Model != "gpt-4o" || !cfg.Oracle.Disabled {
		t.Errorf("oracle overrides not applied: %+v", cfg.Oracle)
	}
	if cfg.FFmpeg.Preset != "fast" || cfg.FFmpeg.CRF != 28 {
		t.Errorf("ffmpeg overrides not applied: %+v", cfg.FFmpeg)
	}

	// Unset fields keep their defaults.
	if cfg.ReportPath != "scene_analysis.txt" {
		t.Errorf("expected default report path, got %q", cfg.ReportPath)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"zero stride", "stride: 0"},
		{"batch of one", "batch_size: 1"},
		{"threshold above range", "diff_threshold: 300"},
		{"negative threshold", "diff_threshold: -1"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(c.data), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("expected validation error for %q", c.data)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := defaultConfig()
	cfg.Stride = 5
	cfg.Oracle.Model = "gpt-4o"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Stride != 5 || loaded.Oracle.Model != "gpt-4o" {
		t.Errorf("round trip lost values: stride=%d model=%q", loaded.Stride, loaded.Oracle.Model)
	}
}

func TestConfigContext(t *testing.T) {
	cfg := defaultConfig()
	cfg.Stride = 99

	ctx := WithConfig(context.Background(), cfg)
	if got := FromContext(ctx); got.Stride != 99 {
		t.Errorf("expected config from context, got stride %d", got.Stride)
	}

	// A bare context yields defaults rather than nil.
	if got := FromContext(context.Background()); got == nil || got.Stride != 15 {
		t.Error("expected default config from empty context")
	}
}
