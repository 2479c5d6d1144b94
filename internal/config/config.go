package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level application configuration
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
	Audio       AudioConfig       `toml:"audio"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Recognition RecognitionConfig `toml:"recognition"`
	Translation TranslationConfig `toml:"translation"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	ReadTimeoutSec     int      `toml:"read_timeout_seconds"`
	WriteTimeoutSec    int      `toml:"write_timeout_seconds"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AudioConfig represents the audio capture configuration
type AudioConfig struct {
	SampleRate         int     `toml:"sample_rate"`
	SegmentDurationSec float64 `toml:"segment_duration_seconds"`
	SilenceThreshold   float64 `toml:"silence_threshold"`
	Source             string  `toml:"source"` // "wav" (file replay) for now
	WAVPath            string  `toml:"wav_path"`
}

// PipelineConfig represents the streaming pipeline configuration
type PipelineConfig struct {
	QueueCapacity      int `toml:"queue_capacity"`
	PopTimeoutSec      int `toml:"pop_timeout_seconds"`
	ShutdownTimeoutSec int `toml:"shutdown_timeout_seconds"`
}

// RecognitionConfig represents the speech recognition engine configuration
type RecognitionConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TranslationConfig represents the translation engine configuration
type TranslationConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
}

// Default returns the configuration defaults. Recognition talks to a local
// whisper server, translation to a local Ollama instance via its
// OpenAI-compatible endpoint.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8087,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Audio: AudioConfig{
			SampleRate:         16000,
			SegmentDurationSec: 4.0,
			SilenceThreshold:   0.001,
			Source:             "wav",
		},
		Pipeline: PipelineConfig{
			QueueCapacity:      20,
			PopTimeoutSec:      1,
			ShutdownTimeoutSec: 5,
		},
		Recognition: RecognitionConfig{
			BaseURL:        "http://localhost:8000",
			Model:          "distil-large-v3",
			TimeoutSeconds: 30,
		},
		Translation: TranslationConfig{
			BaseURL:        "http://localhost:11434/v1",
			APIKey:         "ollama",
			Model:          "qwen2.5:7b-instruct-q4_K_M",
			TimeoutSeconds: 30,
			Temperature:    0.1,
			MaxTokens:      512,
		},
	}
}

// Load reads the configuration from a TOML file, applying defaults for any
// missing values. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.SegmentDurationSec <= 0 {
		return fmt.Errorf("audio.segment_duration_seconds must be positive, got %g", c.Audio.SegmentDurationSec)
	}
	if c.Audio.SilenceThreshold < 0 {
		return fmt.Errorf("audio.silence_threshold must not be negative, got %g", c.Audio.SilenceThreshold)
	}
	if c.Pipeline.QueueCapacity <= 0 {
		return fmt.Errorf("pipeline.queue_capacity must be positive, got %d", c.Pipeline.QueueCapacity)
	}
	if c.Pipeline.PopTimeoutSec <= 0 {
		return fmt.Errorf("pipeline.pop_timeout_seconds must be positive, got %d", c.Pipeline.PopTimeoutSec)
	}
	if c.Recognition.BaseURL == "" {
		return fmt.Errorf("recognition.base_url is required")
	}
	if c.Translation.BaseURL == "" {
		return fmt.Errorf("translation.base_url is required")
	}
	return nil
}

// SegmentDuration returns the audio segment duration as a time.Duration
func (c *AudioConfig) SegmentDuration() time.Duration {
	return time.Duration(c.SegmentDurationSec * float64(time.Second))
}

// PopTimeout returns the queue pop timeout as a time.Duration
func (c *PipelineConfig) PopTimeout() time.Duration {
	return time.Duration(c.PopTimeoutSec) * time.Second
}

// ShutdownTimeout returns the worker join bound as a time.Duration
func (c *PipelineConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}
