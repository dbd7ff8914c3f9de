package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoaderOption customizes Load.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	configFile string
	envFile    string
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.envFile = path }
}

// Load builds the configuration from config.yml, a .env file, and process
// environment variables, then applies defaults and validates. Environment
// variables win over file values; SOAPNOTE_LLM_API_KEY maps to llm.api_key.
func Load(opts ...LoaderOption) (*Config, error) {
	var o loaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.configFile == "" {
		o.configFile = findFirst(
			"./config.yml",
			"./config/config.yml",
			fmt.Sprintf("./cmd/%s/config.yml", ServiceName),
		)
	}
	if o.envFile == "" {
		o.envFile = findFirst(
			fmt.Sprintf(".env.%s", ServiceName),
			".env",
		)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			fmt.Fprintf(os.Stderr, "[config] warning: failed to load %s: %v\n", o.envFile, err)
		}
	}

	v := viper.New()
	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", o.configFile, err)
		}
	}

	v.SetEnvPrefix(strings.ToUpper(ServiceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvKeys registers every config key with viper so AutomaticEnv covers
// keys absent from the config file.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"service.name", "service.environment", "service.debug",
		"logging.level", "logging.format", "logging.output", "logging.redact_phi",
		"chunker.max_segment_bytes", "chunker.transcribe_workers",
		"transcription.provider", "transcription.base_url", "transcription.api_key",
		"transcription.model", "transcription.language", "transcription.timeout",
		"llm.provider", "llm.base_url", "llm.api_key", "llm.model", "llm.max_tokens",
		"llm.temperature", "llm.max_attempts", "llm.timeout",
		"render.format", "render.engine_url", "render.timeout",
		"output.dir",
		"server.host", "server.port", "server.max_upload_bytes",
		"retry.max_attempts", "retry.initial_backoff", "retry.max_backoff", "retry.backoff_factor",
		"tracing.enabled", "tracing.endpoint",
	}
	for _, key := range keys {
		// BindEnv only fails on an empty key.
		_ = v.BindEnv(key)
	}
}

func findFirst(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
