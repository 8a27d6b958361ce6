package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Defaults that differ from the zero value
const (
	DefaultProvider         = "claude"
	DefaultClaudeModel      = "claude-sonnet-4-5-20250929"
	DefaultGeminiModel      = "gemini-2.5-pro"
	DefaultOllamaModel      = "gemma3"
	DefaultMaxTokens        = 4096
	DefaultMaxRetries       = 3
	DefaultMaxTotalWait     = 30 * time.Second
	DefaultBaseDelay        = time.Second
	DefaultJitter           = time.Second
	DefaultPromptDiffBudget = 15000
)

// LoadFromEnv loads configuration from environment variables, after reading
// ENV_FILE_PATH, <configDir>/.env or ./.env into the environment.
// An empty configDir means ~/.semdiff.
func LoadFromEnv(configDir string) (*Config, error) {
	cfg := New()

	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".semdiff")
	}
	cfg.configDir = configDir

	if envFilePath := getEnvString("ENV_FILE_PATH", ""); envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil {
		_ = godotenv.Load()
	}

	cfg.DefaultLLMProvider = getEnvString("SEMDIFF_LLM_DEFAULT_PROVIDER", DefaultProvider)

	// ANTHROPIC_API_KEY and SEMANTIC_DIFF_MODEL are honoured for compatibility
	cfg.Claude = ClaudeConfig{
		APIKey:            getEnvFirst([]string{"SEMDIFF_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"}, ""),
		BaseURL:           getEnvString("SEMDIFF_CLAUDE_BASE_URL", "https://api.anthropic.com"),
		APIVersion:        getEnvString("SEMDIFF_CLAUDE_API_VERSION", "2023-06-01"),
		Model:             getEnvFirst([]string{"SEMDIFF_CLAUDE_MODEL", "SEMANTIC_DIFF_MODEL"}, DefaultClaudeModel),
		Timeout:           getEnvDuration("SEMDIFF_CLAUDE_TIMEOUT", 60*time.Second),
		MaxTokens:         getEnvInt("SEMDIFF_CLAUDE_MAX_TOKENS", DefaultMaxTokens),
		Temperature:       getEnvFloat("SEMDIFF_CLAUDE_TEMPERATURE", 0.1),
		RequestsPerMinute: getEnvInt("SEMDIFF_CLAUDE_RPM", 50),
		BurstLimit:        getEnvInt("SEMDIFF_CLAUDE_BURST", 5),
	}

	cfg.Gemini = GeminiConfig{
		APIKey:            getEnvString("SEMDIFF_GEMINI_API_KEY", ""),
		BaseURL:           getEnvString("SEMDIFF_GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		APIVersion:        getEnvString("SEMDIFF_GEMINI_API_VERSION", "v1beta"),
		Model:             getEnvString("SEMDIFF_GEMINI_MODEL", DefaultGeminiModel),
		Timeout:           getEnvDuration("SEMDIFF_GEMINI_TIMEOUT", 60*time.Second),
		MaxTokens:         getEnvInt("SEMDIFF_GEMINI_MAX_TOKENS", DefaultMaxTokens),
		Temperature:       getEnvFloat("SEMDIFF_GEMINI_TEMPERATURE", 0.1),
		RequestsPerMinute: getEnvInt("SEMDIFF_GEMINI_RPM", 60),
		BurstLimit:        getEnvInt("SEMDIFF_GEMINI_BURST", 5),
	}

	cfg.Ollama = OllamaConfig{
		Endpoint:          getEnvString("SEMDIFF_OLLAMA_ENDPOINT", "http://localhost:11434"),
		Model:             getEnvString("SEMDIFF_OLLAMA_MODEL", DefaultOllamaModel),
		Timeout:           getEnvDuration("SEMDIFF_OLLAMA_TIMEOUT", 300*time.Second),
		MaxTokens:         getEnvInt("SEMDIFF_OLLAMA_MAX_TOKENS", DefaultMaxTokens),
		Temperature:       getEnvFloat("SEMDIFF_OLLAMA_TEMPERATURE", 0.1),
		RequestsPerMinute: getEnvInt("SEMDIFF_OLLAMA_RPM", 0),
		BurstLimit:        getEnvInt("SEMDIFF_OLLAMA_BURST", 1),
	}

	cfg.Retry = RetryConfig{
		MaxRetries:   getEnvInt("SEMDIFF_MAX_RETRIES", DefaultMaxRetries),
		MaxTotalWait: getEnvDuration("SEMDIFF_MAX_TOTAL_WAIT", DefaultMaxTotalWait),
		BaseDelay:    getEnvDuration("SEMDIFF_RETRY_BASE_DELAY", DefaultBaseDelay),
		Jitter:       getEnvDuration("SEMDIFF_RETRY_JITTER", DefaultJitter),
	}

	cfg.Analysis = AnalysisConfig{
		PromptDiffBudget: getEnvInt("SEMDIFF_PROMPT_DIFF_BUDGET", DefaultPromptDiffBudget),
		Concurrency:      getEnvInt("SEMDIFF_RANGE_CONCURRENCY", 1),
		Timeout:          getEnvDuration("SEMDIFF_ANALYSIS_TIMEOUT", 0),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnvString("SEMDIFF_LOG_LEVEL", "info"),
		Format:     getEnvString("SEMDIFF_LOG_FORMAT", "text"),
		Output:     getEnvString("SEMDIFF_LOG_OUTPUT", filepath.Join(configDir, "semdiff.log")),
		AddSource:  getEnvBool("SEMDIFF_LOG_ADD_SOURCE", false),
		TimeFormat: getTimeFormat(getEnvString("SEMDIFF_LOG_TIME_FORMAT", "RFC3339")),
	}

	return cfg, cfg.Validate()
}
