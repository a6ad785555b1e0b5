package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// Client is an implementation of the CompletionClient interface using
// the OpenAI chat completions API
type Client struct {
	client *openai.Client
	logger *zap.Logger
}

// NewClient creates a new OpenAI client. baseURL may be empty for the
// public API, or point at an OpenAI-compatible endpoint.
func NewClient(apiKey, baseURL string, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		logger: logger,
	}
}

// Complete sends a prompt and returns the model's raw text response
func (c *Client) Complete(ctx context.Context, req *core.CompletionRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI completion finished",
		zap.String("model", req.Model),
		zap.String("processing_id", resp.ID))

	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the models available from the API
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.ID)
	}
	return models, nil
}
