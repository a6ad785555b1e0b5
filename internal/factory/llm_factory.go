package factory

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/adapters/bedrock"
	"github.com/mikey/llm-mail-triage/internal/adapters/gemini"
	"github.com/mikey/llm-mail-triage/internal/adapters/ollama"
	"github.com/mikey/llm-mail-triage/internal/adapters/openai"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
)

// LLMFactory creates LLM completion clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompletionClient creates a completion client based on the
// configured provider
func (f *LLMFactory) CreateCompletionClient() (core.CompletionClient, error) {
	llmCfg := f.cfg.GetLLM()

	switch llmCfg.Provider {
	case "ollama":
		ollamaCfg := f.cfg.GetOllama()
		timeout, err := time.ParseDuration(ollamaCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama timeout: %w", err)
		}
		return ollama.NewClient(ollamaCfg.BaseURL, timeout, f.logger), nil
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		return openai.NewClient(openaiCfg.APIKey, openaiCfg.BaseURL, f.logger), nil
	case "bedrock":
		bedrockCfg := f.cfg.GetBedrock()
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(bedrockCfg.Region),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		return bedrock.NewClient(client, bedrockCfg.ModelID, bedrockCfg.TopP, f.logger), nil
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		return gemini.NewClient(context.Background(), geminiCfg.APIKey, geminiCfg.TopP, f.logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmCfg.Provider)
	}
}
