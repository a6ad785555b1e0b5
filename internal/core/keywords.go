package core

import (
	"fmt"
	"strings"
)

const (
	keywordWeight = 0.3
	mentionWeight = 0.4
)

// ScoreKeywords computes the deterministic confidence signal for a rule:
// each keyword found in the subject or body adds 0.3, each mention adds
// 0.4, capped at 1.0. The returned reason enumerates what matched.
// Empty keyword and mention lists yield 0 with no error.
func ScoreKeywords(msg *Message, rule *Rule) (float64, string) {
	subject := strings.ToLower(msg.Subject)
	body := strings.ToLower(msg.Body)

	confidence := 0.0
	var matched []string

	for _, keyword := range rule.Keywords {
		k := strings.ToLower(strings.TrimSpace(keyword))
		if k == "" {
			continue
		}
		if strings.Contains(subject, k) || strings.Contains(body, k) {
			confidence += keywordWeight
			matched = append(matched, fmt.Sprintf("keyword %q", keyword))
		}
	}

	for _, mention := range rule.Mentions {
		m := strings.ToLower(strings.TrimSpace(mention))
		if m == "" {
			continue
		}
		if strings.Contains(subject, m) || strings.Contains(body, m) {
			confidence += mentionWeight
			matched = append(matched, fmt.Sprintf("mention %q", mention))
		}
	}

	if confidence > 1.0 {
		confidence = 1.0
	}

	if len(matched) == 0 {
		return confidence, "No keyword matches"
	}
	return confidence, "Matched " + strings.Join(matched, ", ")
}
