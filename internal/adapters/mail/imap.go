package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	smtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/utils"
)

// maxMessageBytes bounds how much of a single message body is read
const maxMessageBytes = 2 << 20

// IMAPConfig holds the connection settings for an IMAP mailbox and the
// SMTP endpoint used for replies
type IMAPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	Mailbox       string
	TLSSkipVerify bool
	TrashFolder   string
	SpamFolder    string
	ArchiveFolder string
	SMTPHost      string
	SMTPPort      int
	SMTPFrom      string
}

// replyInfo is the envelope data needed to address a reply later
type replyInfo struct {
	senderAddr string
	messageID  string
}

// IMAPProvider is an implementation of the MailProvider interface for a
// generic IMAP mailbox. Message ids are decimal mailbox UIDs. Each
// operation opens its own short-lived session.
type IMAPProvider struct {
	cfg           IMAPConfig
	textProcessor *utils.TextProcessor
	logger        *zap.Logger

	mu        sync.Mutex
	envelopes map[string]replyInfo
}

// NewIMAPProvider creates a new IMAP mail provider
func NewIMAPProvider(cfg IMAPConfig, textProcessor *utils.TextProcessor, logger *zap.Logger) *IMAPProvider {
	if cfg.Port < 1 {
		cfg.Port = 993
	}
	if strings.TrimSpace(cfg.Mailbox) == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.TrashFolder == "" {
		cfg.TrashFolder = "Trash"
	}
	if cfg.SpamFolder == "" {
		cfg.SpamFolder = "Junk"
	}
	if cfg.ArchiveFolder == "" {
		cfg.ArchiveFolder = "Archive"
	}
	if cfg.SMTPHost == "" {
		cfg.SMTPHost = cfg.Host
	}
	if cfg.SMTPPort < 1 {
		cfg.SMTPPort = 587
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.Username
	}

	return &IMAPProvider{
		cfg:           cfg,
		textProcessor: textProcessor,
		logger:        logger,
		envelopes:     make(map[string]replyInfo),
	}
}

// IsAuthenticated reports whether a login with the configured
// credentials succeeds
func (p *IMAPProvider) IsAuthenticated() bool {
	if p.cfg.Host == "" || p.cfg.Username == "" || p.cfg.Password == "" {
		return false
	}
	c, err := p.connect(context.Background())
	if err != nil {
		p.logger.Debug("IMAP authentication probe failed", zap.Error(err))
		return false
	}
	c.Logout()
	return true
}

// GetUnreadMessages fetches up to maxResults unread messages from the
// configured mailbox without marking them seen
func (p *IMAPProvider) GetUnreadMessages(ctx context.Context, maxResults int) ([]*core.Message, error) {
	c, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select(p.cfg.Mailbox, false); err != nil {
		return nil, fmt.Errorf("imap select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search unread: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if maxResults > 0 && len(uids) > maxResults {
		uids = uids[:maxResults]
	}

	set := new(imap.SeqSet)
	set.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchUid,
		imap.FetchEnvelope,
		section.FetchItem(),
	}

	fetched := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(set, items, fetched)
	}()

	messages := make([]*core.Message, 0, len(uids))
	for raw := range fetched {
		bodyReader := raw.GetBody(section)
		if bodyReader == nil {
			continue
		}
		bodyBytes, readErr := readLimited(bodyReader, maxMessageBytes)
		if readErr != nil {
			p.logger.Warn("Skipping oversized IMAP message", zap.Uint32("uid", raw.Uid))
			continue
		}

		msg := &core.Message{
			ID:     strconv.FormatUint(uint64(raw.Uid), 10),
			Body:   p.textProcessor.SanitizeUTF8(decodeMessageBody(bodyBytes)),
			Unread: true,
		}
		info := replyInfo{}
		if raw.Envelope != nil {
			msg.Subject = decodeHeader(raw.Envelope.Subject)
			msg.ReceivedAt = raw.Envelope.Date
			if len(raw.Envelope.From) > 0 && raw.Envelope.From[0] != nil {
				from := raw.Envelope.From[0]
				msg.FromAddr = from.MailboxName + "@" + from.HostName
				msg.FromName = decodeHeader(from.PersonalName)
			}
			info.senderAddr = msg.FromAddr
			info.messageID = strings.TrimSpace(raw.Envelope.MessageId)
		}
		p.rememberEnvelope(msg.ID, info)
		messages = append(messages, msg)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch unread: %w", err)
	}

	p.logger.Debug("Fetched unread IMAP messages", zap.Int("count", len(messages)))
	return messages, nil
}

// MoveToFolder moves a message, creating the folder if needed
func (p *IMAPProvider) MoveToFolder(ctx context.Context, messageID, folder string) error {
	return p.withMessage(ctx, messageID, func(c *client.Client, set *imap.SeqSet) error {
		if err := c.Create(folder); err != nil {
			// Create fails when the folder already exists
			p.logger.Debug("IMAP folder create skipped", zap.String("folder", folder), zap.Error(err))
		}
		if err := c.UidMove(set, folder); err != nil {
			return fmt.Errorf("imap move to %q: %w", folder, err)
		}
		return nil
	})
}

// Delete moves a message to the trash folder
func (p *IMAPProvider) Delete(ctx context.Context, messageID string) error {
	return p.MoveToFolder(ctx, messageID, p.cfg.TrashFolder)
}

// MarkAsRead sets the \Seen flag on a message
func (p *IMAPProvider) MarkAsRead(ctx context.Context, messageID string) error {
	return p.withMessage(ctx, messageID, func(c *client.Client, set *imap.SeqSet) error {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(set, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return fmt.Errorf("imap mark seen: %w", err)
		}
		return nil
	})
}

// Archive moves a message to the archive folder
func (p *IMAPProvider) Archive(ctx context.Context, messageID string) error {
	return p.MoveToFolder(ctx, messageID, p.cfg.ArchiveFolder)
}

// MarkAsSpam moves a message to the spam folder
func (p *IMAPProvider) MarkAsSpam(ctx context.Context, messageID string) error {
	return p.MoveToFolder(ctx, messageID, p.cfg.SpamFolder)
}

// SendReply sends a reply to the sender of the given message over SMTP
func (p *IMAPProvider) SendReply(ctx context.Context, messageID, subject, body string) error {
	info, ok := p.lookupEnvelope(messageID)
	if !ok || info.senderAddr == "" {
		return fmt.Errorf("no sender address known for message %s", messageID)
	}

	var b strings.Builder
	b.WriteString("From: " + p.cfg.SMTPFrom + "\r\n")
	b.WriteString("To: " + info.senderAddr + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	if info.messageID != "" {
		b.WriteString("In-Reply-To: " + info.messageID + "\r\n")
		b.WriteString("References: " + info.messageID + "\r\n")
	}
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	addr := p.cfg.SMTPHost + ":" + strconv.Itoa(p.cfg.SMTPPort)
	auth := sasl.NewPlainClient("", p.cfg.Username, p.cfg.Password)
	if err := smtp.SendMail(addr, auth, p.cfg.SMTPFrom, []string{info.senderAddr}, strings.NewReader(b.String())); err != nil {
		return fmt.Errorf("smtp send reply: %w", err)
	}

	p.logger.Info("Sent reply",
		zap.String("message_id", messageID),
		zap.String("to", info.senderAddr))
	return nil
}

func (p *IMAPProvider) withMessage(ctx context.Context, messageID string, fn func(*client.Client, *imap.SeqSet) error) error {
	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid IMAP message id %q: %w", messageID, err)
	}

	c, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Logout()

	if _, err := c.Select(p.cfg.Mailbox, false); err != nil {
		return fmt.Errorf("imap select mailbox: %w", err)
	}

	set := new(imap.SeqSet)
	set.AddNum(uint32(uid))
	return fn(c, set)
}

func (p *IMAPProvider) connect(ctx context.Context) (*client.Client, error) {
	addr := p.cfg.Host + ":" + strconv.Itoa(p.cfg.Port)
	tlsConfig := &tls.Config{
		ServerName:         p.cfg.Host,
		InsecureSkipVerify: p.cfg.TLSSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	c, err := client.DialTLS(addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w", err)
	}
	select {
	case <-ctx.Done():
		c.Logout()
		return nil, ctx.Err()
	default:
	}
	if err := c.Login(p.cfg.Username, p.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

func (p *IMAPProvider) rememberEnvelope(messageID string, info replyInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes[messageID] = info
}

func (p *IMAPProvider) lookupEnvelope(messageID string) (replyInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.envelopes[messageID]
	return info, ok
}

var headerDecoder = mime.WordDecoder{CharsetReader: charsetReader}

// decodeHeader decodes RFC 2047 encoded-words in a header value
func decodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// charsetReader translates non-UTF-8 charsets using the IANA registry
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// decodeMessageBody extracts plain text from a raw RFC822 message,
// preferring text/plain parts and stripping tags from HTML-only mail
func decodeMessageBody(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	parsed, err := netmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(string(raw))
	}

	mediaType, params, _ := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	bodyBytes, err := readLimited(parsed.Body, maxMessageBytes)
	if err != nil {
		return ""
	}

	if strings.HasPrefix(strings.ToLower(mediaType), "multipart/") {
		return parseMultipartBody(bodyBytes, params["boundary"])
	}

	bodyBytes = decodePart(bodyBytes, parsed.Header.Get("Content-Transfer-Encoding"), params["charset"])
	if strings.EqualFold(mediaType, "text/html") {
		return stripHTML(string(bodyBytes))
	}
	return strings.TrimSpace(string(bodyBytes))
}

func parseMultipartBody(raw []byte, boundary string) string {
	if strings.TrimSpace(boundary) == "" {
		return strings.TrimSpace(string(raw))
	}

	reader := multipart.NewReader(bytes.NewReader(raw), boundary)
	var plainParts, htmlParts []string
	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}
		data, readErr := readLimited(part, maxMessageBytes)
		if readErr != nil {
			continue
		}
		mediaType, params, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		data = decodePart(data, part.Header.Get("Content-Transfer-Encoding"), params["charset"])

		switch strings.ToLower(strings.TrimSpace(mediaType)) {
		case "text/plain":
			if text := strings.TrimSpace(string(data)); text != "" {
				plainParts = append(plainParts, text)
			}
		case "text/html":
			if text := strings.TrimSpace(string(data)); text != "" {
				htmlParts = append(htmlParts, text)
			}
		}
	}

	if len(plainParts) > 0 {
		return strings.Join(plainParts, "\n\n")
	}
	if len(htmlParts) > 0 {
		return stripHTML(strings.Join(htmlParts, "\n\n"))
	}
	return strings.TrimSpace(string(raw))
}

// decodePart reverses the transfer encoding and charset of a body part
func decodePart(data []byte, encoding, charset string) []byte {
	var reader io.Reader = bytes.NewReader(data)
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		reader = quotedprintable.NewReader(reader)
	}

	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset != "" && charset != "utf-8" && charset != "us-ascii" {
		if converted, err := charsetReader(charset, reader); err == nil {
			reader = converted
		}
	}

	decoded, err := readLimited(reader, maxMessageBytes)
	if err != nil {
		return data
	}
	return decoded
}

var htmlTagPattern = regexp.MustCompile(`(?s)<[^>]*>`)

func stripHTML(input string) string {
	text := htmlTagPattern.ReplaceAllString(input, " ")
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

func readLimited(reader io.Reader, maxBytes int64) ([]byte, error) {
	limited := &io.LimitedReader{R: reader, N: maxBytes + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("content exceeds max size")
	}
	return data, nil
}
