package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// Client is an implementation of the CompletionClient interface using
// Google Gemini
type Client struct {
	client *genai.Client
	topP   float32
	logger *zap.Logger
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, topP float32, logger *zap.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client: client,
		topP:   topP,
		logger: logger,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Complete sends a prompt and returns the model's raw text response
func (c *Client) Complete(ctx context.Context, req *core.CompletionRequest) (string, error) {
	model := c.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	model.SetTopP(c.topP)
	model.SetMaxOutputTokens(int32(req.MaxTokens))
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

// ListModels returns the models available from the API
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var models []string

	it := c.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list Gemini models: %w", err)
		}
		models = append(models, strings.TrimPrefix(m.Name, "models/"))
	}

	return models, nil
}
