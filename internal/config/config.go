// Package config loads semdiff settings from the environment and .env files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	DefaultLLMProvider string // claude, gemini or ollama
	Claude             ClaudeConfig
	Gemini             GeminiConfig
	Ollama             OllamaConfig
	Retry              RetryConfig
	Analysis           AnalysisConfig
	Logging            LoggingConfig
	configDir          string
}

// RetryConfig bounds the retries of one analysis call
type RetryConfig struct {
	MaxRetries   int           // total attempts, including the first
	MaxTotalWait time.Duration // ceiling on cumulative backoff wait
	BaseDelay    time.Duration // first backoff delay, doubled per retry
	Jitter       time.Duration // upper bound of the random delay added per retry
}

// AnalysisConfig controls prompt shaping and range analysis
type AnalysisConfig struct {
	PromptDiffBudget int           // total diff characters rendered into the prompt
	Concurrency      int           // parallel commits for range analysis
	Timeout          time.Duration // overall deadline per commit, 0 disables it
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error, none
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool
	TimeFormat string
}

// ClaudeConfig holds Anthropic API configuration
type ClaudeConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	Timeout    time.Duration // per attempt
	MaxTokens  int

	Temperature float64

	RequestsPerMinute int
	BurstLimit        int
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string // v1 or v1beta
	Model      string
	Timeout    time.Duration
	MaxTokens  int

	Temperature float64

	RequestsPerMinute int
	BurstLimit        int
}

// OllamaConfig holds configuration for a local Ollama server
type OllamaConfig struct {
	Endpoint  string
	Model     string
	Timeout   time.Duration
	MaxTokens int

	Temperature float64

	RequestsPerMinute int
	BurstLimit        int
}

// New returns a new empty Config
func New() *Config {
	return &Config{}
}

// ConfigDir returns the directory the configuration was loaded from
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return fmt.Errorf("LLM config: %w", err)
	}

	if err := c.validateRetry(); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}

	if err := c.validateAnalysis(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ParseLogLevel parses a log level string to a slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		return slog.Level(9999)
	default:
		return slog.LevelInfo
	}
}

func (c *Config) validateLLM() error {
	switch c.DefaultLLMProvider {
	case "claude", "gemini", "ollama":
	case "":
		return fmt.Errorf("default provider cannot be empty")
	default:
		return fmt.Errorf("unknown provider %q (must be claude, gemini or ollama)", c.DefaultLLMProvider)
	}

	if c.Gemini.APIVersion != "" && c.Gemini.APIVersion != "v1" && c.Gemini.APIVersion != "v1beta" {
		return fmt.Errorf("invalid Gemini API version: %s (must be v1 or v1beta)", c.Gemini.APIVersion)
	}

	if c.Ollama.Endpoint == "" {
		return fmt.Errorf("ollama endpoint cannot be empty")
	}

	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive")
	}

	if c.Retry.MaxTotalWait < 0 {
		return fmt.Errorf("max_total_wait cannot be negative")
	}

	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("base_delay must be positive")
	}

	if c.Retry.Jitter < 0 {
		return fmt.Errorf("jitter cannot be negative")
	}

	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.PromptDiffBudget <= 0 {
		return fmt.Errorf("prompt_diff_budget must be positive")
	}

	if c.Analysis.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	switch c.Logging.Output {
	case "stdout", "stderr":
		return nil
	case "":
		return fmt.Errorf("log output cannot be empty")
	}

	dir := filepath.Dir(c.Logging.Output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return checkDirectoryWritable(dir)
}

// getEnvString returns a string from the environment variable
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first set variable among keys, or defaultValue
func getEnvFirst(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value, exists := os.LookupEnv(key); exists && value != "" {
			return value
		}
	}
	return defaultValue
}

// getEnvInt returns an int from the environment variable
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool returns a bool from the environment variable
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration returns a time.Duration from the environment variable.
// Bare numbers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.ParseFloat(value, 64); err == nil {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return defaultValue
}

// getEnvFloat returns a float64 from the environment variable
func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getTimeFormat converts a named time format to its layout
func getTimeFormat(name string) string {
	switch name {
	case "RFC3339":
		return time.RFC3339
	case "RFC3339Nano":
		return time.RFC3339Nano
	case "Kitchen":
		return time.Kitchen
	case "DateTime":
		return time.DateTime
	default:
		return name
	}
}

// checkDirectoryWritable tests if a directory is writable
func checkDirectoryWritable(dir string) error {
	testFile := filepath.Join(dir, fmt.Sprintf("test_write_%d", time.Now().UnixNano()))
	f, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("directory not writable: %w", err)
	}

	f.Close()
	os.Remove(testFile)

	return nil
}
