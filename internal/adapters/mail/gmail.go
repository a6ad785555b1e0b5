package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	netmail "net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/utils"
)

// gmailThreadInfo is the metadata needed to send a threaded reply
type gmailThreadInfo struct {
	senderAddr string
	threadID   string
	messageID  string
}

// GmailProvider is an implementation of the MailProvider interface
// using the Gmail REST API. Message ids are Gmail message ids.
type GmailProvider struct {
	service       *gmail.Service
	userEmail     string
	textProcessor *utils.TextProcessor
	logger        *zap.Logger

	mu      sync.Mutex
	threads map[string]gmailThreadInfo
	labels  map[string]string
}

// NewGmailProvider creates a new Gmail provider from a pre-acquired
// OAuth token. Token acquisition is configuration's responsibility.
func NewGmailProvider(ctx context.Context, token *oauth2.Token, userEmail string, textProcessor *utils.TextProcessor, logger *zap.Logger) (*GmailProvider, error) {
	source := oauth2.StaticTokenSource(token)
	service, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailProvider{
		service:       service,
		userEmail:     userEmail,
		textProcessor: textProcessor,
		logger:        logger,
		threads:       make(map[string]gmailThreadInfo),
		labels:        make(map[string]string),
	}, nil
}

// IsAuthenticated reports whether the session can reach the mailbox
func (p *GmailProvider) IsAuthenticated() bool {
	if p.service == nil {
		return false
	}
	_, err := p.service.Users.GetProfile("me").Do()
	if err != nil {
		p.logger.Debug("Gmail authentication probe failed", zap.Error(err))
		return false
	}
	return true
}

// GetUnreadMessages fetches up to maxResults unread inbox messages
func (p *GmailProvider) GetUnreadMessages(ctx context.Context, maxResults int) ([]*core.Message, error) {
	call := p.service.Users.Messages.List("me").Q("is:unread in:inbox").Context(ctx)
	if maxResults > 0 {
		call = call.MaxResults(int64(maxResults))
	}
	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}

	messages := make([]*core.Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		full, err := p.service.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			p.logger.Warn("Failed to fetch Gmail message", zap.String("message_id", ref.Id), zap.Error(err))
			continue
		}
		msg := p.toMessage(full)
		messages = append(messages, msg)
	}

	p.logger.Debug("Fetched unread Gmail messages", zap.Int("count", len(messages)))
	return messages, nil
}

// MoveToFolder applies a user label, creating it if needed, and
// removes the message from the inbox
func (p *GmailProvider) MoveToFolder(ctx context.Context, messageID, folder string) error {
	labelID, err := p.ensureLabel(ctx, folder)
	if err != nil {
		return err
	}
	return p.modify(ctx, messageID, []string{labelID}, []string{"INBOX"})
}

// Delete moves a message to the Gmail trash
func (p *GmailProvider) Delete(ctx context.Context, messageID string) error {
	if _, err := p.service.Users.Messages.Trash("me", messageID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to trash message %s: %w", messageID, err)
	}
	return nil
}

// MarkAsRead removes the UNREAD label
func (p *GmailProvider) MarkAsRead(ctx context.Context, messageID string) error {
	return p.modify(ctx, messageID, nil, []string{"UNREAD"})
}

// Archive removes the INBOX label
func (p *GmailProvider) Archive(ctx context.Context, messageID string) error {
	return p.modify(ctx, messageID, nil, []string{"INBOX"})
}

// MarkAsSpam applies the SPAM label and removes the message from the
// inbox
func (p *GmailProvider) MarkAsSpam(ctx context.Context, messageID string) error {
	return p.modify(ctx, messageID, []string{"SPAM"}, []string{"INBOX"})
}

// SendReply sends a threaded reply to the sender of the given message
func (p *GmailProvider) SendReply(ctx context.Context, messageID, subject, body string) error {
	info, ok := p.lookupThread(messageID)
	if !ok || info.senderAddr == "" {
		return fmt.Errorf("no sender address known for message %s", messageID)
	}

	var b strings.Builder
	b.WriteString("From: " + p.userEmail + "\r\n")
	b.WriteString("To: " + info.senderAddr + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	if info.messageID != "" {
		b.WriteString("In-Reply-To: " + info.messageID + "\r\n")
		b.WriteString("References: " + info.messageID + "\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	reply := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(b.String())),
		ThreadId: info.threadID,
	}
	if _, err := p.service.Users.Messages.Send("me", reply).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send reply to message %s: %w", messageID, err)
	}

	p.logger.Info("Sent reply",
		zap.String("message_id", messageID),
		zap.String("to", info.senderAddr))
	return nil
}

func (p *GmailProvider) modify(ctx context.Context, messageID string, add, remove []string) error {
	req := &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}
	if _, err := p.service.Users.Messages.Modify("me", messageID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to modify labels on message %s: %w", messageID, err)
	}
	return nil
}

// ensureLabel resolves a label name to its id, creating the label on
// first use
func (p *GmailProvider) ensureLabel(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	if id, ok := p.labels[name]; ok {
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	list, err := p.service.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}
	for _, label := range list.Labels {
		if label.Name == name {
			p.rememberLabel(name, label.Id)
			return label.Id, nil
		}
	}

	created, err := p.service.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create label %q: %w", name, err)
	}

	p.logger.Info("Created Gmail label", zap.String("label", name))
	p.rememberLabel(name, created.Id)
	return created.Id, nil
}

func (p *GmailProvider) rememberLabel(name, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.labels[name] = id
}

func (p *GmailProvider) lookupThread(messageID string) (gmailThreadInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.threads[messageID]
	return info, ok
}

// toMessage converts a Gmail API message to the core representation
// and caches the thread metadata needed for replies
func (p *GmailProvider) toMessage(full *gmail.Message) *core.Message {
	msg := &core.Message{
		ID:     full.Id,
		Unread: true,
	}
	info := gmailThreadInfo{threadID: full.ThreadId}

	if full.InternalDate > 0 {
		msg.ReceivedAt = time.UnixMilli(full.InternalDate)
	}
	if full.Payload != nil {
		for _, header := range full.Payload.Headers {
			switch strings.ToLower(header.Name) {
			case "from":
				if addr, err := netmail.ParseAddress(header.Value); err == nil {
					msg.FromAddr = addr.Address
					msg.FromName = addr.Name
				} else {
					msg.FromAddr = header.Value
				}
				info.senderAddr = msg.FromAddr
			case "subject":
				msg.Subject = decodeHeader(header.Value)
			case "message-id":
				info.messageID = strings.TrimSpace(header.Value)
			}
		}
		msg.Body = p.textProcessor.SanitizeUTF8(extractGmailBody(full.Payload))
	}
	p.mu.Lock()
	p.threads[msg.ID] = info
	p.mu.Unlock()
	return msg
}

// extractGmailBody walks the payload tree, preferring text/plain parts
// and falling back to stripped HTML
func extractGmailBody(payload *gmail.MessagePart) string {
	var plainParts, htmlParts []string
	collectGmailParts(payload, &plainParts, &htmlParts)

	if len(plainParts) > 0 {
		return strings.TrimSpace(strings.Join(plainParts, "\n\n"))
	}
	if len(htmlParts) > 0 {
		return stripHTML(strings.Join(htmlParts, "\n\n"))
	}
	return ""
}

func collectGmailParts(part *gmail.MessagePart, plainParts, htmlParts *[]string) {
	if part == nil {
		return
	}
	if part.Body != nil && part.Body.Data != "" {
		if data := decodeGmailData(part.Body.Data); data != "" {
			switch {
			case strings.HasPrefix(part.MimeType, "text/plain"):
				*plainParts = append(*plainParts, data)
			case strings.HasPrefix(part.MimeType, "text/html"):
				*htmlParts = append(*htmlParts, data)
			}
		}
	}
	for _, child := range part.Parts {
		collectGmailParts(child, plainParts, htmlParts)
	}
}

func decodeGmailData(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}
