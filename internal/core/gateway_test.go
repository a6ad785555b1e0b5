package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestParseAnalysisResponseEmbeddedJSON(t *testing.T) {
	raw := `Sure, here is my analysis:
{"match": true, "confidence": 0.85, "reason": "x", "topics": ["billing", ""], "mentions": ["alice"]}
Let me know if you need anything else.`

	result := ParseAnalysisResponse(raw)
	if !result.IsMatch {
		t.Fatal("expected a match")
	}
	if !almostEqual(result.Confidence, 0.85) {
		t.Fatalf("confidence = %v, want 0.85", result.Confidence)
	}
	if result.Reason != "x" {
		t.Fatalf("reason = %q, want %q", result.Reason, "x")
	}
	if len(result.Topics) != 1 || result.Topics[0] != "billing" {
		t.Fatalf("topics = %v, blank entries should be dropped", result.Topics)
	}
	if len(result.Mentions) != 1 || result.Mentions[0] != "alice" {
		t.Fatalf("mentions = %v", result.Mentions)
	}
	if result.RawResponse != raw {
		t.Fatal("raw response not preserved")
	}
}

func TestParseAnalysisResponseWrongTypes(t *testing.T) {
	result := ParseAnalysisResponse(`{"match": "yep", "confidence": "high", "reason": 7}`)
	if result.IsMatch {
		t.Fatal("wrongly typed match field should default to false")
	}
	if result.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", result.Confidence)
	}
	if result.Reason != "" {
		t.Fatalf("reason = %q, want empty", result.Reason)
	}
}

func TestParseAnalysisResponseClampsConfidence(t *testing.T) {
	result := ParseAnalysisResponse(`{"match": true, "confidence": 3.2}`)
	if result.Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", result.Confidence)
	}
}

func TestParseAnalysisResponseHeuristicFallback(t *testing.T) {
	tests := []struct {
		raw       string
		wantMatch bool
		wantConf  float64
	}{
		{"This definitely looks like a match to me.", true, 0.9},
		{"Maybe, hard to say.", false, 0.3},
		{"I believe the answer is yes.", true, 0.5},
		{"Nothing relevant found.", false, 0.5},
		{"low confidence, but it contains a match signal", true, 0.3},
	}

	for _, tt := range tests {
		result := ParseAnalysisResponse(tt.raw)
		if result.IsMatch != tt.wantMatch {
			t.Errorf("%q: isMatch = %v, want %v", tt.raw, result.IsMatch, tt.wantMatch)
		}
		if !almostEqual(result.Confidence, tt.wantConf) {
			t.Errorf("%q: confidence = %v, want %v", tt.raw, result.Confidence, tt.wantConf)
		}
		if result.Reason != tt.raw {
			t.Errorf("%q: fallback reason should be the raw text", tt.raw)
		}
	}
}

func TestParseAnalysisResponseBrokenJSONFallsBack(t *testing.T) {
	raw := `{"match": true, "confidence": 0.9,` // unterminated
	result := ParseAnalysisResponse(raw)
	// Heuristic path: contains "match" and "true".
	if !result.IsMatch {
		t.Fatal("expected heuristic match")
	}
	if result.Reason != raw {
		t.Fatal("expected raw text as reason")
	}
}

type stubClient struct {
	response string
	err      error
	models   []string
	calls    int
}

func (c *stubClient) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	c.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.response, c.err
}

func (c *stubClient) ListModels(ctx context.Context) ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.models, nil
}

func newTestGateway(client CompletionClient) *LLMGateway {
	store := NewTemplateStore(nil, nil)
	prompts := NewPromptBuilder(store, ModelParams{Model: "llama3", Temperature: 0.1, MaxTokens: 500})
	return NewLLMGateway(client, prompts, zap.NewNop())
}

func TestGatewayAnalyzeTransportErrorDegrades(t *testing.T) {
	gw := newTestGateway(&stubClient{err: errors.New("connection refused")})

	result, err := gw.Analyze(context.Background(), &Message{Subject: "s", Body: "b"}, &Rule{Name: "r"})
	if err != nil {
		t.Fatalf("transport errors must not cross the analysis boundary: %v", err)
	}
	if result.IsMatch || result.Confidence != 0 {
		t.Fatalf("expected zero-confidence non-match, got %+v", result)
	}
	if !strings.HasPrefix(result.Reason, "Error: ") {
		t.Fatalf("reason = %q, want Error: prefix", result.Reason)
	}
}

func TestGatewayAnalyzeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := newTestGateway(&stubClient{response: `{"match": true, "confidence": 1}`})
	if _, err := gw.Analyze(ctx, &Message{}, &Rule{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestGatewayIsAvailable(t *testing.T) {
	tests := []struct {
		name   string
		models []string
		err    error
		want   bool
	}{
		{"exact match", []string{"mistral", "llama3"}, nil, true},
		{"tagged match", []string{"llama3:latest"}, nil, true},
		{"missing", []string{"mistral"}, nil, false},
		{"listing fails", nil, errors.New("down"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(&stubClient{models: tt.models, err: tt.err})
			if got := gw.IsAvailable(context.Background()); got != tt.want {
				t.Fatalf("IsAvailable = %v, want %v", got, tt.want)
			}
		})
	}
}
