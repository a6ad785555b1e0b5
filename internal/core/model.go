package core

import (
	"time"
)

// Message represents an incoming email message. It is never mutated by
// any pipeline stage; stages that need a modified body work on a copy.
type Message struct {
	ID         string
	FromAddr   string
	FromName   string
	Subject    string
	Body       string
	ReceivedAt time.Time
	Unread     bool
}

// From returns the sender display name, falling back to the address.
func (m *Message) From() string {
	if m.FromName != "" {
		return m.FromName
	}
	return m.FromAddr
}

// FilterAction is the side effect dispatched for a matched rule
type FilterAction string

const (
	ActionMoveToFolder FilterAction = "move_to_folder"
	ActionDelete       FilterAction = "delete"
	ActionMarkAsRead   FilterAction = "mark_as_read"
	ActionArchive      FilterAction = "archive"
	ActionMarkAsSpam   FilterAction = "mark_as_spam"
)

// Rule is a single ordered filtering rule. Rule order within the
// configured list is significant and fixed for a configuration snapshot.
type Rule struct {
	Name                string
	Enabled             bool
	Keywords            []string
	Mentions            []string
	Topics              []string
	ConfidenceThreshold float64
	Action              FilterAction
	TargetFolder        string
	AutoReplyTemplateID string
	LLMTemplateID       string
	// Deprecated: free-text extra instructions, superseded by LLMTemplateID.
	CustomPrompt string
}

// FewShotExample is a worked example embedded in an analysis template
type FewShotExample struct {
	Subject        string
	Body           string
	ExpectedResult string
	Explanation    string
}

// Template is a reusable prompt-construction strategy referenced by id
// from a rule. Model, Temperature and MaxTokens are optional overrides
// of the global defaults and are resolved at call time, never baked in.
type Template struct {
	ID               string
	SystemPrompt     string
	PromptBody       string
	OutputFormat     string
	Examples         []FewShotExample
	Model            string
	Temperature      *float32
	MaxTokens        *int
	RequiresKeywords bool
	RequiresTopics   bool
	RequiresMentions bool
}

// AutoReplyTemplate describes an automatic reply sent after a rule's
// primary action. Subject supports {originalSubject}; Body additionally
// supports {sender}.
type AutoReplyTemplate struct {
	ID              string
	Subject         string
	Body            string
	IncludeOriginal bool
}

// ModelParams are the generation parameters for a single LLM call
type ModelParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// AnalysisResult is the structured outcome of one LLM analysis. The
// gateway always produces one; transport and parse failures degrade to
// a zero-confidence non-match instead of an error.
type AnalysisResult struct {
	IsMatch     bool
	Confidence  float64
	Reason      string
	RawResponse string
	Topics      []string
	Mentions    []string
}

// FilterOutcome is the per-message result of the filtering pipeline.
// At most one rule is ever recorded as matched.
type FilterOutcome struct {
	IsMatch           bool
	Confidence        float64
	MatchedRule       *Rule
	Reason            string
	ActionTaken       bool
	ActionDescription string
	Err               error
	ProcessedAt       time.Time
}

// Summary is the result of the body summarization pre-stage. Msg is
// the unmodified original message.
type Summary struct {
	Msg             *Message
	Body            string
	WasSummarized   bool
	Metadata        string
	EstimatedTokens int
}

// OutcomeRecord is the persisted digest of a FilterOutcome, keyed by
// message id, used to skip already-processed messages across batches.
type OutcomeRecord struct {
	MessageID   string
	RuleName    string
	Matched     bool
	Confidence  float64
	Action      string
	ProcessedAt time.Time
	ExpiresAt   time.Time
}
