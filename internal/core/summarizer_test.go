package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestSummarizer(client CompletionClient) *Summarizer {
	return NewSummarizer(client, ModelParams{Model: "llama3"}, zap.NewNop())
}

func TestSummarizeShortBodyUnchanged(t *testing.T) {
	s := newTestSummarizer(nil)
	msg := &Message{ID: "m1", Body: "Short note. Nothing to cut."}

	summary := s.SummarizeIfNeeded(context.Background(), msg, 3000)
	if summary.WasSummarized {
		t.Fatal("short body must not be summarized")
	}
	if summary.Body != msg.Body {
		t.Fatal("short body must be returned unchanged")
	}
	if summary.Msg != msg {
		t.Fatal("summary must reference the original message")
	}
}

func TestSummarizeEmptyBody(t *testing.T) {
	s := newTestSummarizer(nil)
	summary := s.SummarizeIfNeeded(context.Background(), &Message{ID: "m1"}, 10)
	if summary.WasSummarized || summary.Body != "" {
		t.Fatalf("empty body handled wrong: %+v", summary)
	}
}

func TestSummarizeBoundsOversizedBody(t *testing.T) {
	s := newTestSummarizer(nil)

	for _, maxLength := range []int{100, 500, 3000} {
		var sb strings.Builder
		for i := 0; i < 400; i++ {
			sb.WriteString("This is a perfectly ordinary filler sentence about nothing. ")
		}
		msg := &Message{ID: "m1", Body: sb.String()}

		summary := s.SummarizeIfNeeded(context.Background(), msg, maxLength)
		if !summary.WasSummarized {
			t.Fatalf("maxLength=%d: oversized body must be summarized", maxLength)
		}
		if len(summary.Body) > maxLength {
			t.Fatalf("maxLength=%d: summary is %d chars", maxLength, len(summary.Body))
		}
		if msg.Body != sb.String() {
			t.Fatal("original message mutated")
		}
	}
}

func TestExtractiveKeepsOriginalOrder(t *testing.T) {
	// Sentence scores: first (+2) and last (+1.5) outrank the middle;
	// the urgent middle sentence scores above plain filler.
	body := "Opening line of the email. " +
		strings.Repeat("Filler text without any signal words at all. ", 20) +
		"This deadline is urgent, please help with the request. " +
		"Closing line of the email."

	got := extractiveSummary(body, 200)
	if got == "" {
		t.Fatal("expected an extractive result")
	}
	opening := strings.Index(got, "Opening line")
	urgent := strings.Index(got, "deadline is urgent")
	closing := strings.Index(got, "Closing line")
	if opening == -1 || urgent == -1 || closing == -1 {
		t.Fatalf("high-scoring sentences missing from %q", got)
	}
	if !(opening < urgent && urgent < closing) {
		t.Fatalf("sentences re-rendered out of original order: %q", got)
	}
	if len(got) > 200 {
		t.Fatalf("extractive result too long: %d", len(got))
	}
}

func TestAbstractiveStageUsed(t *testing.T) {
	// A single giant "sentence" defeats extraction, forcing stage 2.
	client := &stubClient{response: "A concise summary."}
	s := newTestSummarizer(client)
	msg := &Message{ID: "m1", Body: strings.Repeat("word ", 2000)}

	summary := s.SummarizeIfNeeded(context.Background(), msg, 100)
	if summary.Body != "A concise summary." {
		t.Fatalf("body = %q, want the abstractive result", summary.Body)
	}
	if client.calls != 1 {
		t.Fatalf("LLM called %d times, want 1", client.calls)
	}
	if !strings.Contains(summary.Metadata, "abstractive") {
		t.Fatalf("metadata = %q", summary.Metadata)
	}
}

func TestTruncationFallbackOnLLMFailure(t *testing.T) {
	client := &stubClient{err: errors.New("model not loaded")}
	s := newTestSummarizer(client)
	msg := &Message{ID: "m1", Body: strings.Repeat("x", 5000)}

	summary := s.SummarizeIfNeeded(context.Background(), msg, 100)
	if len(summary.Body) > 100 {
		t.Fatalf("fallback produced %d chars", len(summary.Body))
	}
	if !strings.HasSuffix(summary.Body, truncationMarker) {
		t.Fatalf("fallback missing marker: %q", summary.Body)
	}
}

func TestTruncateAtBoundary(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
	}{
		{"paragraph break", "First paragraph here.\n\nSecond paragraph is much longer and keeps going on. " + strings.Repeat("x", 200), 100},
		{"sentence end", "One sentence. Another one here. " + strings.Repeat("x", 200), 60},
		{"word break", strings.Repeat("word ", 100), 52},
		{"no breaks at all", strings.Repeat("x", 500), 40},
		{"tiny budget", strings.Repeat("x", 500), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateAtBoundary(tt.text, tt.max)
			if len(got) > tt.max {
				t.Fatalf("len = %d, exceeds %d", len(got), tt.max)
			}
		})
	}

	if got := TruncateAtBoundary("short", 100); got != "short" {
		t.Fatalf("under-limit text must pass through, got %q", got)
	}
}

func TestTruncateAtBoundaryPrefersParagraph(t *testing.T) {
	text := "Keep this paragraph.\n\n" + strings.Repeat("y", 300)
	got := TruncateAtBoundary(text, 100)
	if !strings.HasPrefix(got, "Keep this paragraph.") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(strings.TrimSuffix(got, truncationMarker), "y") {
		t.Fatalf("cut should land on the paragraph break: %q", got)
	}
}

func TestEstimateTokenCount(t *testing.T) {
	if got := EstimateTokenCount(strings.Repeat("a", 403)); got != 100 {
		t.Fatalf("EstimateTokenCount = %d, want 100", got)
	}
	if got := EstimateTokenCount(""); got != 0 {
		t.Fatalf("EstimateTokenCount(\"\") = %d", got)
	}
}
