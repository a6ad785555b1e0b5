package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// Client is an implementation of the CompletionClient interface using
// Amazon Bedrock
type Client struct {
	client  *bedrockruntime.Client
	modelID string
	topP    float32
	logger  *zap.Logger
}

// NewClient creates a new Bedrock client. modelID is the configured
// default, used when a request carries no model of its own.
func NewClient(client *bedrockruntime.Client, modelID string, topP float32, logger *zap.Logger) *Client {
	return &Client{
		client:  client,
		modelID: modelID,
		topP:    topP,
		logger:  logger,
	}
}

// Complete sends a prompt and returns the model's raw text response
func (c *Client) Complete(ctx context.Context, req *core.CompletionRequest) (string, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.modelID
	}

	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}

	// Create the request based on the model
	var payload []byte
	var err error

	if isAnthropicModel(modelID) {
		// Anthropic Claude models
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": req.MaxTokens,
			"temperature":          req.Temperature,
			"top_p":                c.topP,
		})
	} else if isAmazonTitanModel(modelID) {
		// Amazon Titan models
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": req.MaxTokens,
				"temperature":   req.Temperature,
				"topP":          c.topP,
			},
		})
	} else {
		// Default to a generic format
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  req.MaxTokens,
			"temperature": req.Temperature,
			"top_p":       c.topP,
		})
	}

	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	// Parse the response based on the model
	if isAnthropicModel(modelID) {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if isAmazonTitanModel(modelID) {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	// Try a generic approach
	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(resp.Body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}

	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	}

	// Just use the raw response as a string
	return string(resp.Body), nil
}

// ListModels reports the configured model id. The Bedrock runtime API
// has no listing operation, so availability reduces to configuration.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	return []string{c.modelID}, nil
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func isAnthropicModel(modelID string) bool {
	return strings.HasPrefix(modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func isAmazonTitanModel(modelID string) bool {
	return strings.HasPrefix(modelID, "amazon.titan")
}
