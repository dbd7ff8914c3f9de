// Package config defines the application configuration and a loader that
// layers config.yml, .env files, and environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/physiolab/soapnote/internal/render"
)

// ServiceName identifies this service in config and env lookups.
const ServiceName = "soapnote"

// Config is the full application configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service" mapstructure:"service"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	Chunker       ChunkerConfig       `yaml:"chunker" mapstructure:"chunker"`
	Transcription TranscriptionConfig `yaml:"transcription" mapstructure:"transcription"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Render        RenderConfig        `yaml:"render" mapstructure:"render"`
	Output        OutputConfig        `yaml:"output" mapstructure:"output"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Retry         RetryConfig         `yaml:"retry" mapstructure:"retry"`
	Tracing       TracingConfig       `yaml:"tracing" mapstructure:"tracing"`
}

// ServiceConfig contains base service identity fields.
type ServiceConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"` // "json" or "console"
	Output    string `yaml:"output" mapstructure:"output"` // "stdout" or "stderr"
	RedactPHI bool   `yaml:"redact_phi" mapstructure:"redact_phi"`
}

// ChunkerConfig controls audio segmentation.
type ChunkerConfig struct {
	MaxSegmentBytes int64 `yaml:"max_segment_bytes" mapstructure:"max_segment_bytes"`
	// TranscribeWorkers bounds concurrent segment transcriptions. 1 runs
	// segments sequentially.
	TranscribeWorkers int `yaml:"transcribe_workers" mapstructure:"transcribe_workers"`
}

// TranscriptionConfig configures the speech-to-text provider.
type TranscriptionConfig struct {
	// Provider selects the registered speech-to-text implementation.
	Provider string        `yaml:"provider" mapstructure:"provider"`
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey   string        `yaml:"api_key" mapstructure:"api_key"`
	Model    string        `yaml:"model" mapstructure:"model"`
	Language string        `yaml:"language" mapstructure:"language"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LLMConfig configures the language-model provider and extraction budget.
type LLMConfig struct {
	// Provider selects the registered language-model implementation.
	Provider    string        `yaml:"provider" mapstructure:"provider"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RenderConfig configures report rendering.
type RenderConfig struct {
	// Format is "pdf" or "markdown".
	Format    string        `yaml:"format" mapstructure:"format"`
	EngineURL string        `yaml:"engine_url" mapstructure:"engine_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OutputConfig controls where reports are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Host           string `yaml:"host" mapstructure:"host"`
	Port           int    `yaml:"port" mapstructure:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// RetryConfig is the shared retry policy for the provider clients.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor" mapstructure:"backoff_factor"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// ApplyDefaults fills unset fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = ServiceName
	}
	if c.Service.Environment == "" {
		c.Service.Environment = "development"
	}
	if c.Service.Environment == "development" {
		c.Service.Debug = true
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		if c.Service.Environment == "development" {
			c.Logging.Format = "console"
		} else {
			c.Logging.Format = "json"
		}
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}

	if c.Chunker.MaxSegmentBytes <= 0 {
		c.Chunker.MaxSegmentBytes = 25 * 1024 * 1024
	}
	if c.Chunker.TranscribeWorkers <= 0 {
		c.Chunker.TranscribeWorkers = 2
	}

	if c.Transcription.Provider == "" {
		c.Transcription.Provider = "openai-whisper"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = 3
	}

	if c.Render.Format == "" {
		c.Render.Format = string(render.FormatPDF)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./reports"
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 100 * 1024 * 1024
	}

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoff <= 0 {
		c.Retry.InitialBackoff = 500 * time.Millisecond
	}
	if c.Retry.MaxBackoff <= 0 {
		c.Retry.MaxBackoff = 10 * time.Second
	}
	if c.Retry.BackoffFactor == 0 {
		c.Retry.BackoffFactor = 2.0
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Service.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("service.environment must be one of [development, staging, production] (got: %s)", c.Service.Environment)
	}

	switch render.Format(c.Render.Format) {
	case render.FormatPDF, render.FormatMarkdown:
	default:
		return fmt.Errorf("render.format must be pdf or markdown (got: %s)", c.Render.Format)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("retry.backoff_factor must be >= 1 (got: %g)", c.Retry.BackoffFactor)
	}
	return nil
}
