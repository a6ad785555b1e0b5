package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// DryRunProvider is a MailProvider that logs every action instead of
// executing it. The one-shot CLI uses it so classification runs have
// no mailbox side effects.
type DryRunProvider struct {
	messages []*core.Message
	logger   *zap.Logger
}

// NewDryRunProvider creates a dry-run provider serving the given
// messages
func NewDryRunProvider(messages []*core.Message, logger *zap.Logger) *DryRunProvider {
	return &DryRunProvider{
		messages: messages,
		logger:   logger,
	}
}

func (p *DryRunProvider) IsAuthenticated() bool {
	return true
}

func (p *DryRunProvider) GetUnreadMessages(ctx context.Context, maxResults int) ([]*core.Message, error) {
	if maxResults > 0 && len(p.messages) > maxResults {
		return p.messages[:maxResults], nil
	}
	return p.messages, nil
}

func (p *DryRunProvider) MoveToFolder(ctx context.Context, messageID, folder string) error {
	p.logger.Info("Dry run: would move message",
		zap.String("message_id", messageID),
		zap.String("folder", folder))
	return nil
}

func (p *DryRunProvider) Delete(ctx context.Context, messageID string) error {
	p.logger.Info("Dry run: would delete message", zap.String("message_id", messageID))
	return nil
}

func (p *DryRunProvider) MarkAsRead(ctx context.Context, messageID string) error {
	p.logger.Info("Dry run: would mark message as read", zap.String("message_id", messageID))
	return nil
}

func (p *DryRunProvider) Archive(ctx context.Context, messageID string) error {
	p.logger.Info("Dry run: would archive message", zap.String("message_id", messageID))
	return nil
}

func (p *DryRunProvider) MarkAsSpam(ctx context.Context, messageID string) error {
	p.logger.Info("Dry run: would mark message as spam", zap.String("message_id", messageID))
	return nil
}

func (p *DryRunProvider) SendReply(ctx context.Context, messageID, subject, body string) error {
	p.logger.Info("Dry run: would send reply",
		zap.String("message_id", messageID),
		zap.String("subject", subject),
		zap.Int("body_size", len(body)))
	return nil
}
