package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/adapters/history"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
)

// HistoryFactory creates outcome history stores based on configuration
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateOutcomeRepository creates an outcome repository based on the
// configuration. Returns nil when history is disabled.
func (f *HistoryFactory) CreateOutcomeRepository() (core.OutcomeRepository, error) {
	historyCfg := f.cfg.GetHistory()
	if !historyCfg.Enabled {
		return nil, nil
	}

	cleanupFreq, err := f.cfg.GetDuration("history.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid history cleanup frequency: %w", err)
	}

	switch historyCfg.Type {
	case "memory":
		return history.NewMemoryStore(f.logger, cleanupFreq), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(historyCfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		return history.NewSQLiteStore(historyCfg.SQLitePath, f.logger, cleanupFreq)
	case "mysql":
		return history.NewMySQLStore(historyCfg.MySQLDSN, f.logger, cleanupFreq)
	default:
		return nil, fmt.Errorf("unsupported history store type: %s", historyCfg.Type)
	}
}
