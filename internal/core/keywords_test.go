package core

import (
	"strings"
	"testing"
)

func TestScoreKeywordsFormula(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		keywords []string
		mentions []string
		want     float64
	}{
		{"no criteria", "hello", "world", nil, nil, 0},
		{"single keyword in body", "hi", "an URGENT request", []string{"urgent"}, nil, 0.3},
		{"single keyword in subject", "Invoice attached", "see attachment", []string{"invoice"}, nil, 0.3},
		{"keyword missing", "hi", "nothing here", []string{"invoice"}, nil, 0},
		{"mention", "hi", "ask Alice about it", nil, []string{"alice"}, 0.4},
		{"keyword and mention", "invoice", "ping alice", []string{"invoice"}, []string{"alice"}, 0.7},
		{"capped at one", "a b c", "a b c d", []string{"a", "b", "c"}, []string{"d"}, 1.0},
		{"blank entries ignored", "hi", "there", []string{"", "  "}, []string{""}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{Subject: tt.subject, Body: tt.body}
			rule := &Rule{Keywords: tt.keywords, Mentions: tt.mentions}
			got, _ := ScoreKeywords(msg, rule)
			if !almostEqual(got, tt.want) {
				t.Fatalf("confidence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreKeywordsReason(t *testing.T) {
	msg := &Message{Subject: "URGENT: CLAIM YOUR PRIZE", Body: "act now"}

	_, reason := ScoreKeywords(msg, &Rule{Keywords: []string{"urgent"}})
	if !strings.Contains(reason, `keyword "urgent"`) {
		t.Fatalf("reason %q does not enumerate the matched keyword", reason)
	}

	_, reason = ScoreKeywords(msg, &Rule{Keywords: []string{"refund"}})
	if reason != "No keyword matches" {
		t.Fatalf("reason = %q, want %q", reason, "No keyword matches")
	}
}

func TestScoreKeywordsCaseInsensitive(t *testing.T) {
	msg := &Message{Subject: "", Body: "URGENT: CLAIM YOUR PRIZE"}
	got, _ := ScoreKeywords(msg, &Rule{Keywords: []string{"urgent"}})
	if !almostEqual(got, 0.3) {
		t.Fatalf("confidence = %v, want 0.3", got)
	}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
