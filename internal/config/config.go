// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (reference cache)
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	// Ollama (embedding + judge models)
	OllamaHost          string `koanf:"ollama_host"`
	JudgeModel          string `koanf:"judge_model"`
	JudgeTimeoutSeconds int    `koanf:"judge_timeout_seconds"`
	EmbeddingModel      string `koanf:"embedding_model"`
	EmbeddingDimensions int    `koanf:"embedding_dimensions"`

	// Analysis pipeline
	ScoringCalibrationPath string `koanf:"scoring_calibration_path"`
	SweepIntervalSeconds   int    `koanf:"sweep_interval_seconds"`
	WebhookURL             string `koanf:"webhook_url"`

	// Tracing
	TracingEnabled  bool    `koanf:"tracing_enabled"`
	TracingEndpoint string  `koanf:"tracing_endpoint"`
	TracingSample   float64 `koanf:"tracing_sample"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingOllamaHost  = errors.New("OLLAMA_HOST is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidDimensions  = errors.New("EMBEDDING_DIMENSIONS must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort                 = 8080
	DefaultEnv                  = "development"
	DefaultOllamaHost           = "http://localhost:11434"
	DefaultJudgeModel           = "llama3.1:8b"
	DefaultJudgeTimeoutSeconds  = 10
	DefaultEmbeddingModel       = "all-minilm"
	DefaultEmbeddingDimensions  = 384
	DefaultSweepIntervalSeconds = 15
	DefaultTracingSample        = 0.1
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over file values. Returns the
// loaded config and a slice of validation errors (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefaultMulti([]string{"REFCHECK_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	judgeTimeout, timeoutErr := getEnvIntOrDefault("JUDGE_TIMEOUT_SECONDS", k.Int("judge_timeout_seconds"), DefaultJudgeTimeoutSeconds)
	if timeoutErr != nil {
		loadErrs = append(loadErrs, timeoutErr)
	}

	dimensions, dimErr := getEnvIntOrDefault("EMBEDDING_DIMENSIONS", k.Int("embedding_dimensions"), DefaultEmbeddingDimensions)
	if dimErr != nil {
		loadErrs = append(loadErrs, dimErr)
	}

	sweepInterval, sweepErr := getEnvIntOrDefault("SWEEP_INTERVAL_SECONDS", k.Int("sweep_interval_seconds"), DefaultSweepIntervalSeconds)
	if sweepErr != nil {
		loadErrs = append(loadErrs, sweepErr)
	}

	tracingSample, sampleErr := getEnvFloatOrDefault("TRACING_SAMPLE", k.Float64("tracing_sample"), DefaultTracingSample)
	if sampleErr != nil {
		loadErrs = append(loadErrs, sampleErr)
	}

	tracingEnabled := k.Bool("tracing_enabled")
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			tracingEnabled = true
		case "false", "0", "no", "off":
			tracingEnabled = false
		}
	}

	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"REFCHECK_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:              getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		RedisPassword:          getEnvOrKoanf("REDIS_PASSWORD", k, "redis_password"),
		OllamaHost:             getEnvOrDefaultMulti([]string{"OLLAMA_HOST"}, k.String("ollama_host"), DefaultOllamaHost),
		JudgeModel:             getEnvOrDefaultMulti([]string{"JUDGE_MODEL"}, k.String("judge_model"), DefaultJudgeModel),
		JudgeTimeoutSeconds:    judgeTimeout,
		EmbeddingModel:         getEnvOrDefaultMulti([]string{"EMBEDDING_MODEL"}, k.String("embedding_model"), DefaultEmbeddingModel),
		EmbeddingDimensions:    dimensions,
		ScoringCalibrationPath: getEnvOrKoanf("SCORING_CALIBRATION_PATH", k, "scoring_calibration_path"),
		SweepIntervalSeconds:   sweepInterval,
		WebhookURL:             getEnvOrKoanf("WEBHOOK_URL", k, "webhook_url"),
		TracingEnabled:         tracingEnabled,
		TracingEndpoint:        getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingSample:          tracingSample,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise
// the koanf value, or default. Returns an error if the environment variable is
// set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set,
// otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.OllamaHost == "" {
		errs = append(errs, ErrMissingOllamaHost)
	}
	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, ErrInvalidDimensions)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     fmt.Sprintf("%d", c.Port),
		"env":                      c.Env,
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"redis_addr":               c.RedisAddr,
		"redis_password":           maskSecret(c.RedisPassword),
		"ollama_host":              c.OllamaHost,
		"judge_model":              c.JudgeModel,
		"judge_timeout_seconds":    fmt.Sprintf("%d", c.JudgeTimeoutSeconds),
		"embedding_model":          c.EmbeddingModel,
		"embedding_dimensions":     fmt.Sprintf("%d", c.EmbeddingDimensions),
		"scoring_calibration_path": c.ScoringCalibrationPath,
		"sweep_interval_seconds":   fmt.Sprintf("%d", c.SweepIntervalSeconds),
		"webhook_url":              c.WebhookURL,
		"tracing_enabled":          fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_endpoint":         c.TracingEndpoint,
		"tracing_sample":           fmt.Sprintf("%.2f", c.TracingSample),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters
// followed by ****. Secrets shorter than 8 characters are fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
