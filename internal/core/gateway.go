package core

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// jsonSpanPattern matches the first greedy multi-line brace span in a
// model response; surrounding prose is tolerated and ignored
var jsonSpanPattern = regexp.MustCompile(`(?s)\{.*\}`)

// LLMGateway sends analysis prompts to the configured provider and
// parses the free-form response into a structured AnalysisResult. It
// never returns an error across the analysis boundary except for
// context cancellation: transport and parse failures degrade to a
// zero-confidence non-match so rule evaluation can continue.
type LLMGateway struct {
	client  CompletionClient
	prompts *PromptBuilder
	logger  *zap.Logger
}

// NewLLMGateway creates a new LLM gateway
func NewLLMGateway(client CompletionClient, prompts *PromptBuilder, logger *zap.Logger) *LLMGateway {
	return &LLMGateway{
		client:  client,
		prompts: prompts,
		logger:  logger,
	}
}

// Analyze evaluates a message against a rule's semantic criteria. The
// returned error is non-nil only when ctx was cancelled.
func (g *LLMGateway) Analyze(ctx context.Context, msg *Message, rule *Rule) (*AnalysisResult, error) {
	prompt, params := g.prompts.Build(msg, rule)
	return g.complete(ctx, prompt, params)
}

// TestTemplate runs the same analysis path against an explicit
// template, bypassing the rule's template reference. Used for
// interactive template debugging; it has no side effects.
func (g *LLMGateway) TestTemplate(ctx context.Context, msg *Message, tmpl *Template, rule *Rule) (*AnalysisResult, error) {
	prompt := g.prompts.BuildFromTemplate(msg, rule, tmpl)
	return g.complete(ctx, prompt, g.prompts.ResolveParams(tmpl))
}

// IsAvailable reports whether the configured model is present in the
// provider's model listing. This is a readiness probe only; it is not
// consulted per message.
func (g *LLMGateway) IsAvailable(ctx context.Context) bool {
	models, err := g.client.ListModels(ctx)
	if err != nil {
		g.logger.Warn("Failed to list models", zap.Error(err))
		return false
	}

	want := g.prompts.Defaults().Model
	for _, m := range models {
		if m == want || strings.HasPrefix(m, want+":") {
			return true
		}
	}

	g.logger.Warn("Configured model not available",
		zap.String("model", want),
		zap.Int("available", len(models)))
	return false
}

func (g *LLMGateway) complete(ctx context.Context, prompt string, params ModelParams) (*AnalysisResult, error) {
	raw, err := g.client.Complete(ctx, &CompletionRequest{
		Prompt:      prompt,
		Model:       params.Model,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("LLM analysis failed", zap.Error(err))
		return &AnalysisResult{
			IsMatch:    false,
			Confidence: 0,
			Reason:     "Error: " + err.Error(),
		}, nil
	}

	return ParseAnalysisResponse(raw), nil
}

// ParseAnalysisResponse parses raw LLM response text. It first looks
// for a JSON object anywhere in the text and parses it strictly with
// type-tolerant field extraction; on any failure it falls back to a
// heuristic parser that always produces a result.
func ParseAnalysisResponse(raw string) *AnalysisResult {
	if span := jsonSpanPattern.FindString(raw); span != "" {
		if result, ok := parseJSONSpan(span); ok {
			result.RawResponse = raw
			return result
		}
	}
	return parseHeuristic(raw)
}

// parseJSONSpan attempts a strict JSON parse of the extracted brace
// span. Absent or wrongly typed fields fall back to zero values rather
// than failing the parse.
func parseJSONSpan(span string) (*AnalysisResult, bool) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return nil, false
	}

	result := &AnalysisResult{}
	if v, ok := payload["match"].(bool); ok {
		result.IsMatch = v
	}
	if v, ok := payload["confidence"].(float64); ok {
		result.Confidence = clamp01(v)
	}
	if v, ok := payload["reason"].(string); ok {
		result.Reason = v
	}
	result.Topics = stringList(payload["topics"])
	result.Mentions = stringList(payload["mentions"])

	return result, true
}

// parseHeuristic is the last-resort parser for responses with no
// parseable JSON. It can never fail.
func parseHeuristic(raw string) *AnalysisResult {
	lower := strings.ToLower(raw)

	isMatch := strings.Contains(lower, "match") ||
		strings.Contains(lower, "yes") ||
		strings.Contains(lower, "true")

	confidence := 0.5
	if strings.Contains(lower, "high confidence") || strings.Contains(lower, "definitely") {
		confidence = 0.9
	} else if strings.Contains(lower, "low confidence") || strings.Contains(lower, "maybe") {
		confidence = 0.3
	}

	return &AnalysisResult{
		IsMatch:     isMatch,
		Confidence:  confidence,
		Reason:      raw,
		RawResponse: raw,
	}
}

// stringList extracts a []string from a decoded JSON value, dropping
// blank entries
func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
