// Package app provides the application initialization and lifecycle management
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/semdiff/internal/config"
	"github.com/tildaslashalef/semdiff/internal/llm"
	"github.com/tildaslashalef/semdiff/internal/loggy"
	"github.com/tildaslashalef/semdiff/internal/review"
)

// App represents the application instance with its dependencies
type App struct {
	Config *config.Config
	Logger *loggy.Logger
}

// AnalyzerOptions selects the repository and overrides the configured provider
type AnalyzerOptions struct {
	RepoPath string
	Provider string // empty uses SEMDIFF_LLM_DEFAULT_PROVIDER
	Model    string // empty uses the provider's configured model
}

// New initializes a new application instance with all its dependencies
func New() (*App, error) {
	cfg, err := config.LoadFromEnv("")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"log_level", cfg.Logging.Level,
		"provider", cfg.DefaultLLMProvider,
	)

	return &App{Config: cfg, Logger: loggy.GetGlobalLogger()}, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// Analyzer builds the analysis pipeline for one repository
func (app *App) Analyzer(opts AnalyzerOptions) (*review.Analyzer, error) {
	cfg := *app.Config
	providerName := strings.ToLower(opts.Provider)
	if providerName == "" {
		providerName = cfg.DefaultLLMProvider
	}

	if opts.Model != "" {
		switch llm.ClientType(providerName) {
		case llm.Claude:
			cfg.Claude.Model = opts.Model
		case llm.Gemini:
			cfg.Gemini.Model = opts.Model
		case llm.Ollama:
			cfg.Ollama.Model = opts.Model
		}
	}

	provider, err := llm.NewFactory(&cfg, app.Logger).Provider(llm.ClientType(providerName))
	if err != nil {
		return nil, err
	}
	app.Logger.Info("Initialized LLM provider", "provider", provider.Name(), "model", provider.Model())

	client := llm.NewClient(provider, RetryConfig(cfg.Retry), app.Logger)
	return review.NewAnalyzer(opts.RepoPath, client, cfg.Analysis, app.Logger), nil
}

// RetryConfig converts the configured retry bounds for the LLM client
func RetryConfig(cfg config.RetryConfig) llm.RetryConfig {
	return llm.RetryConfig{
		MaxRetries:   cfg.MaxRetries,
		MaxTotalWait: cfg.MaxTotalWait,
		BaseDelay:    cfg.BaseDelay,
		Jitter:       cfg.Jitter,
	}
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")
	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}
