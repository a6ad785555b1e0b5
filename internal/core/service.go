package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/whitelist"
)

// interMessageDelay is a crude throttle between messages in a batch,
// not an adaptive backoff
const interMessageDelay = 100 * time.Millisecond

// ErrNotAuthenticated is returned when batch processing is attempted
// without a usable mail session
var ErrNotAuthenticated = errors.New("mail provider is not authenticated")

// FilterService drives the per-message classification pipeline:
// summarization, ordered short-circuiting rule evaluation with fused
// keyword/LLM confidence, and action dispatch with optional auto-reply.
type FilterService struct {
	gateway       *LLMGateway
	mail          MailProvider
	history       OutcomeRepository
	summarizer    *Summarizer
	templates     *TemplateStore
	rules         []Rule
	whitelist     *whitelist.Checker
	logger        *zap.Logger
	filteredLabel string
	summaryLimit  int
	historyTTL    time.Duration
}

// NewFilterService creates a new filter service. history may be nil to
// disable outcome persistence; whitelistChecker may be nil.
func NewFilterService(
	gateway *LLMGateway,
	mail MailProvider,
	history OutcomeRepository,
	summarizer *Summarizer,
	templates *TemplateStore,
	rules []Rule,
	whitelistChecker *whitelist.Checker,
	logger *zap.Logger,
	filteredLabel string,
	summaryLimit int,
	historyTTL time.Duration,
) *FilterService {
	if filteredLabel == "" {
		filteredLabel = "Filtered"
	}
	if summaryLimit <= 0 {
		summaryLimit = DefaultSummaryMaxLength
	}
	return &FilterService{
		gateway:       gateway,
		mail:          mail,
		history:       history,
		summarizer:    summarizer,
		templates:     templates,
		rules:         rules,
		whitelist:     whitelistChecker,
		logger:        logger,
		filteredLabel: filteredLabel,
		summaryLimit:  summaryLimit,
		historyTTL:    historyTTL,
	}
}

// FilterMessage evaluates one message against the ordered rule list.
// The first rule whose fused confidence reaches its threshold wins;
// later rules are never evaluated and make no LLM calls. The returned
// error is non-nil only on context cancellation, in which case no
// action has been taken.
func (s *FilterService) FilterMessage(ctx context.Context, msg *Message) (*FilterOutcome, error) {
	if s.whitelist.IsWhitelisted(msg.FromAddr) {
		s.logger.Info("Skipping whitelisted sender",
			zap.String("message_id", msg.ID),
			zap.String("sender", msg.FromAddr))
		return &FilterOutcome{
			Reason:      "Sender domain is whitelisted",
			ProcessedAt: time.Now(),
		}, nil
	}

	summary := s.summarizer.SummarizeIfNeeded(ctx, msg, s.summaryLimit)
	analyzed := *msg
	analyzed.Body = summary.Body
	if summary.WasSummarized {
		s.logger.Debug("Analyzing summarized body",
			zap.String("message_id", msg.ID),
			zap.String("summary", summary.Metadata),
			zap.Int("estimated_tokens", summary.EstimatedTokens))
	}

	for i := range s.rules {
		rule := &s.rules[i]
		if !rule.Enabled {
			continue
		}

		keywordConfidence, keywordReason := ScoreKeywords(&analyzed, rule)

		// The LLM signal is independent of the keyword signal and is
		// always consulted, even at keyword confidence 0.
		analysis, err := s.gateway.Analyze(ctx, &analyzed, rule)
		if err != nil {
			return nil, err
		}

		combined := CombineConfidence(keywordConfidence, analysis.Confidence)
		s.logger.Debug("Evaluated rule",
			zap.String("message_id", msg.ID),
			zap.String("rule", rule.Name),
			zap.Float64("keyword_confidence", keywordConfidence),
			zap.Float64("llm_confidence", analysis.Confidence),
			zap.Float64("combined", combined),
			zap.Float64("threshold", rule.ConfidenceThreshold))

		if combined >= rule.ConfidenceThreshold {
			outcome := &FilterOutcome{
				IsMatch:     true,
				Confidence:  combined,
				MatchedRule: rule,
				Reason:      fmt.Sprintf("%s; LLM: %s", keywordReason, analysis.Reason),
				ProcessedAt: time.Now(),
			}
			s.dispatchAction(ctx, msg, rule, outcome)
			s.sendAutoReply(ctx, msg, rule, outcome)
			return outcome, nil
		}
	}

	return &FilterOutcome{
		Reason:      "No rule reached its confidence threshold",
		ProcessedAt: time.Now(),
	}, nil
}

// ProcessUnreadMessages fetches unread messages and runs the pipeline
// over them sequentially. A fetch failure is fatal to the batch; any
// per-message failure is recorded on that message's outcome instead.
func (s *FilterService) ProcessUnreadMessages(ctx context.Context, maxResults int) ([]*FilterOutcome, error) {
	if !s.mail.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	messages, err := s.mail.GetUnreadMessages(ctx, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unread messages: %w", err)
	}
	s.logger.Info("Processing unread messages", zap.Int("count", len(messages)))

	var outcomes []*FilterOutcome
	for i, msg := range messages {
		if s.alreadyProcessed(ctx, msg.ID) {
			s.logger.Debug("Skipping already-processed message", zap.String("message_id", msg.ID))
			continue
		}

		outcome, err := s.FilterMessage(ctx, msg)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
		s.recordOutcome(ctx, msg.ID, outcome)

		if i < len(messages)-1 {
			select {
			case <-ctx.Done():
				return outcomes, ctx.Err()
			case <-time.After(interMessageDelay):
			}
		}
	}

	return outcomes, nil
}

// dispatchAction executes the matched rule's side effect. Failures are
// caught and recorded on the outcome; nothing is retried or rolled
// back.
func (s *FilterService) dispatchAction(ctx context.Context, msg *Message, rule *Rule, outcome *FilterOutcome) {
	var err error
	var description string

	switch rule.Action {
	case ActionMoveToFolder:
		folder := rule.TargetFolder
		if folder == "" {
			folder = s.filteredLabel
		}
		description = "moved to folder " + folder
		err = s.mail.MoveToFolder(ctx, msg.ID, folder)
	case ActionDelete:
		description = "moved to trash"
		err = s.mail.Delete(ctx, msg.ID)
	case ActionMarkAsRead:
		description = "marked as read"
		err = s.mail.MarkAsRead(ctx, msg.ID)
	case ActionArchive:
		description = "archived"
		err = s.mail.Archive(ctx, msg.ID)
	case ActionMarkAsSpam:
		description = "marked as spam"
		err = s.mail.MarkAsSpam(ctx, msg.ID)
	default:
		err = fmt.Errorf("unsupported action: %s", rule.Action)
	}

	if err != nil {
		s.logger.Error("Action failed",
			zap.String("message_id", msg.ID),
			zap.String("rule", rule.Name),
			zap.String("action", string(rule.Action)),
			zap.Error(err))
		outcome.Err = err
		return
	}

	outcome.ActionTaken = true
	outcome.ActionDescription = description
	s.logger.Info("Action taken",
		zap.String("message_id", msg.ID),
		zap.String("rule", rule.Name),
		zap.String("action", description))
}

// sendAutoReply sends the rule's configured auto-reply, if any. A
// missing template id is logged and skipped; a send failure is
// recorded on the outcome independently of the primary action, which
// is never rolled back.
func (s *FilterService) sendAutoReply(ctx context.Context, msg *Message, rule *Rule, outcome *FilterOutcome) {
	if rule.AutoReplyTemplateID == "" {
		return
	}

	tmpl, ok := s.templates.AutoReply(rule.AutoReplyTemplateID)
	if !ok {
		s.logger.Warn("Auto-reply template not found, skipping reply",
			zap.String("rule", rule.Name),
			zap.String("template_id", rule.AutoReplyTemplateID))
		return
	}

	subject := strings.ReplaceAll(tmpl.Subject, "{originalSubject}", msg.Subject)
	body := strings.NewReplacer(
		"{sender}", msg.From(),
		"{originalSubject}", msg.Subject,
	).Replace(tmpl.Body)
	if tmpl.IncludeOriginal {
		body += "\n\n--- Original message ---\n" + msg.Body
	}

	if err := s.mail.SendReply(ctx, msg.ID, subject, body); err != nil {
		s.logger.Error("Auto-reply failed",
			zap.String("message_id", msg.ID),
			zap.String("template_id", tmpl.ID),
			zap.Error(err))
		if outcome.Err == nil {
			outcome.Err = err
		}
		return
	}

	s.logger.Info("Auto-reply sent",
		zap.String("message_id", msg.ID),
		zap.String("template_id", tmpl.ID))
}

func (s *FilterService) alreadyProcessed(ctx context.Context, messageID string) bool {
	if s.history == nil {
		return false
	}
	_, err := s.history.Get(ctx, messageID)
	return err == nil
}

func (s *FilterService) recordOutcome(ctx context.Context, messageID string, outcome *FilterOutcome) {
	if s.history == nil {
		return
	}
	record := &OutcomeRecord{
		MessageID:   messageID,
		Matched:     outcome.IsMatch,
		Confidence:  outcome.Confidence,
		Action:      outcome.ActionDescription,
		ProcessedAt: outcome.ProcessedAt,
		ExpiresAt:   outcome.ProcessedAt.Add(s.historyTTL),
	}
	if outcome.MatchedRule != nil {
		record.RuleName = outcome.MatchedRule.Name
	}
	if err := s.history.Set(ctx, record); err != nil {
		s.logger.Error("Failed to record outcome", zap.Error(err))
	}
}
