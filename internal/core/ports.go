package core

import (
	"context"
)

// CompletionRequest is a single prompt sent to an LLM provider
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// CompletionClient defines the interface for LLM provider transports.
// Implementations return the raw response text; parsing into an
// AnalysisResult is the gateway's job.
type CompletionClient interface {
	// Complete sends a prompt and returns the model's raw text response
	Complete(ctx context.Context, req *CompletionRequest) (string, error)

	// ListModels returns the models available from the provider
	ListModels(ctx context.Context) ([]string, error)
}

// MailProvider defines the provider-agnostic mailbox interface. Message
// ids are opaque provider keys and are never interpreted by the core.
type MailProvider interface {
	// IsAuthenticated reports whether the provider has a usable session
	IsAuthenticated() bool

	// GetUnreadMessages fetches up to maxResults unread messages
	GetUnreadMessages(ctx context.Context, maxResults int) ([]*Message, error)

	// MoveToFolder moves a message, creating the folder if needed
	MoveToFolder(ctx context.Context, messageID, folder string) error

	// Delete moves a message to the provider's trash
	Delete(ctx context.Context, messageID string) error

	// MarkAsRead clears the unread flag
	MarkAsRead(ctx context.Context, messageID string) error

	// Archive removes a message from the inbox view without deleting it
	Archive(ctx context.Context, messageID string) error

	// MarkAsSpam moves a message to the provider's spam folder
	MarkAsSpam(ctx context.Context, messageID string) error

	// SendReply sends a reply to the sender of the given message
	SendReply(ctx context.Context, messageID, subject, body string) error
}

// OutcomeRepository defines the interface for persisting per-message
// filtering outcomes across batches
type OutcomeRepository interface {
	// Get retrieves the record for a message id
	Get(ctx context.Context, messageID string) (*OutcomeRecord, error)

	// Set stores a record
	Set(ctx context.Context, record *OutcomeRecord) error

	// Delete removes a record
	Delete(ctx context.Context, messageID string) error

	// Cleanup removes expired records
	Cleanup(ctx context.Context) error
}
