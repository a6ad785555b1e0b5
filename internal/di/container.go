package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/factory"
	"github.com/mikey/llm-mail-triage/internal/logging"
	"github.com/mikey/llm-mail-triage/internal/poller"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/mikey/llm-mail-triage/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewHistoryFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register LLM completion client
	if err := container.Provide(func(f *factory.LLMFactory) (core.CompletionClient, error) {
		return f.CreateCompletionClient()
	}); err != nil {
		return nil, err
	}

	// Register mail provider
	if err := container.Provide(func(f *factory.MailFactory) (core.MailProvider, error) {
		return f.CreateMailProvider()
	}); err != nil {
		return nil, err
	}

	// Register outcome history store
	if err := container.Provide(func(f *factory.HistoryFactory) (core.OutcomeRepository, error) {
		return f.CreateOutcomeRepository()
	}); err != nil {
		return nil, err
	}

	// Register rules and templates
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) ([]core.Rule, error) {
		rules, err := cfg.GetRules()
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded filtering rules", zap.Int("count", len(rules)))
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

	// Register sender whitelist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		domains := cfg.GetWhitelistedDomains()
		if len(domains) > 0 {
			logger.Info("Loaded whitelisted domains", zap.Strings("domains", domains))
		}
		return whitelist.NewChecker(domains, logger)
	}); err != nil {
		return nil, err
	}

	// Register filter service
	if err := container.Provide(func(
		gateway *core.LLMGateway,
		mail core.MailProvider,
		history core.OutcomeRepository,
		summarizer *core.Summarizer,
		templates *core.TemplateStore,
		rules []core.Rule,
		checker *whitelist.Checker,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.FilterService, error) {
		historyTTL, err := cfg.GetDuration("history.ttl")
		if err != nil {
			return nil, err
		}
		return core.NewFilterService(
			gateway,
			mail,
			history,
			summarizer,
			templates,
			rules,
			checker,
			logger,
			cfg.GetMail().FilteredLabel,
			cfg.GetSummary().MaxLength,
			historyTTL,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register poller
	if err := container.Provide(func(service *core.FilterService, cfg *config.Config, logger *zap.Logger) *poller.Poller {
		return poller.New(service, cfg.GetPoller().Schedule, cfg.GetMail().MaxResults, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
