package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/adapters/mail"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/factory"
	"github.com/mikey/llm-mail-triage/internal/logging"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/mikey/llm-mail-triage/internal/whitelist"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// LLM provider flags
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64

	// Ollama flags
	OllamaURL string

	// OpenAI flags
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey string

	// Classification flags
	Threshold float64

	// Input flags
	InputFile  string
	Check      bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// LLM provider flags
	flag.StringVar(&flags.Provider, "provider", "ollama", "LLM provider (ollama, openai, bedrock, gemini)")
	flag.StringVar(&flags.Model, "model", "llama3", "Model to use for analysis")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for LLM generation")

	// Ollama flags
	flag.StringVar(&flags.OllamaURL, "ollama-url", "http://localhost:11434", "Base URL of the Ollama server")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIBaseURL, "openai-base-url", "", "Base URL for an OpenAI-compatible endpoint")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")

	// Classification flags
	flag.Float64Var(&flags.Threshold, "threshold", 0.7, "Confidence threshold for the built-in rule")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.Check, "check", false, "Check LLM availability and exit")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register text processor and factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}

	// Register LLM completion client
	if err := container.Provide(func(f *factory.LLMFactory) (core.CompletionClient, error) {
		return f.CreateCompletionClient()
	}); err != nil {
		return nil, err
	}

	// Register rules and templates. A built-in catch-all rule is used
	// when the configuration carries none.
	if err := container.Provide(func(cfg *config.Config, flags *CLIFlags) ([]core.Rule, error) {
		rules, err := cfg.GetRules()
		if err != nil {
			return nil, err
		}
		if len(rules) == 0 {
			rules = []core.Rule{{
				Name:                "manual",
				Enabled:             true,
				ConfidenceThreshold: flags.Threshold,
				Action:              core.ActionMarkAsRead,
			}}
		}
		return rules, nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) (*core.TemplateStore, error) {
		templates, err := cfg.GetTemplates()
		if err != nil {
			return nil, err
		}
		autoReplies, err := cfg.GetAutoReplyTemplates()
		if err != nil {
			return nil, err
		}
		return core.NewTemplateStore(templates, autoReplies), nil
	}); err != nil {
		return nil, err
	}

	// Register generation defaults and prompt builder
	if err := container.Provide(func(cfg *config.Config) core.ModelParams {
		llmCfg := cfg.GetLLM()
		return core.ModelParams{
			Model:       llmCfg.Model,
			Temperature: llmCfg.Temperature,
			MaxTokens:   llmCfg.MaxTokens,
		}
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewPromptBuilder); err != nil {
		return nil, err
	}

	// Register LLM gateway and summarizer
	if err := container.Provide(core.NewLLMGateway); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewSummarizer); err != nil {
		return nil, err
	}

	// Register dry-run mail provider
	if err := container.Provide(func(logger *zap.Logger) core.MailProvider {
		return mail.NewDryRunProvider(nil, logger)
	}); err != nil {
		return nil, err
	}

	// Register filter service with no history store
	if err := container.Provide(func(
		gateway *core.LLMGateway,
		mailProvider core.MailProvider,
		summarizer *core.Summarizer,
		templates *core.TemplateStore,
		rules []core.Rule,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.FilterService {
		return core.NewFilterService(
			gateway,
			mailProvider,
			nil, // No history for one-shot runs
			summarizer,
			templates,
			rules,
			whitelist.NewChecker(nil, logger),
			logger,
			cfg.GetMail().FilteredLabel,
			cfg.GetSummary().MaxLength,
			0,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider and generation defaults
	v.Set("llm.provider", flags.Provider)
	v.Set("llm.model", flags.Model)
	v.Set("llm.max_tokens", flags.MaxTokens)
	v.Set("llm.temperature", flags.Temperature)

	// Set provider-specific configuration
	switch flags.Provider {
	case "ollama":
		v.Set("ollama.base_url", flags.OllamaURL)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.base_url", flags.OpenAIBaseURL)
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("llm.model", flags.BedrockModelID)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
	}

	return config.NewFromViper(v)
}
