package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/mikey/llm-mail-triage/internal/adapters/mail"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/utils"
)

// MailFactory creates mail providers
type MailFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewMailFactory creates a new mail factory
func NewMailFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *MailFactory {
	return &MailFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateMailProvider creates a mail provider based on the configuration
func (f *MailFactory) CreateMailProvider() (core.MailProvider, error) {
	mailCfg := f.cfg.GetMail()

	switch mailCfg.Provider {
	case "imap":
		imapCfg := f.cfg.GetIMAP()
		return mail.NewIMAPProvider(mail.IMAPConfig{
			Host:          imapCfg.Host,
			Port:          imapCfg.Port,
			Username:      imapCfg.Username,
			Password:      imapCfg.Password,
			Mailbox:       imapCfg.Mailbox,
			TLSSkipVerify: imapCfg.TLSSkipVerify,
			TrashFolder:   imapCfg.TrashFolder,
			SpamFolder:    imapCfg.SpamFolder,
			ArchiveFolder: imapCfg.ArchiveFolder,
			SMTPHost:      imapCfg.SMTPHost,
			SMTPPort:      imapCfg.SMTPPort,
			SMTPFrom:      imapCfg.SMTPFrom,
		}, f.textProcessor, f.logger), nil
	case "gmail":
		gmailCfg := f.cfg.GetGmail()
		token := &oauth2.Token{AccessToken: gmailCfg.AccessToken}
		return mail.NewGmailProvider(context.Background(), token, gmailCfg.UserEmail, f.textProcessor, f.logger)
	case "dryrun":
		return mail.NewDryRunProvider(nil, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", mailCfg.Provider)
	}
}
