package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("default sample rate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.SegmentDurationSec != 4.0 {
		t.Errorf("default segment duration = %g, want 4.0", cfg.Audio.SegmentDurationSec)
	}
	if cfg.Pipeline.QueueCapacity != 20 {
		t.Errorf("default queue capacity = %d, want 20", cfg.Pipeline.QueueCapacity)
	}
	if cfg.Translation.BaseURL == "" {
		t.Error("default translation base_url is empty")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[audio]
segment_duration_seconds = 2.5
silence_threshold = 0.01

[pipeline]
queue_capacity = 8

[translation]
model = "llama3.1:8b"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SegmentDurationSec != 2.5 {
		t.Errorf("segment duration = %g, want 2.5", cfg.Audio.SegmentDurationSec)
	}
	if cfg.Audio.SilenceThreshold != 0.01 {
		t.Errorf("silence threshold = %g, want 0.01", cfg.Audio.SilenceThreshold)
	}
	if cfg.Pipeline.QueueCapacity != 8 {
		t.Errorf("queue capacity = %d, want 8", cfg.Pipeline.QueueCapacity)
	}
	if cfg.Translation.Model != "llama3.1:8b" {
		t.Errorf("translation model = %q, want llama3.1:8b", cfg.Translation.Model)
	}
	// Untouched sections keep their defaults
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want default 16000", cfg.Audio.SampleRate)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"negative segment duration", func(c *Config) { c.Audio.SegmentDurationSec = -1 }},
		{"zero queue capacity", func(c *Config) { c.Pipeline.QueueCapacity = 0 }},
		{"missing recognition url", func(c *Config) { c.Recognition.BaseURL = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
