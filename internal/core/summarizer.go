package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// DefaultSummaryMaxLength is the body length above which messages
	// are summarized before being sent to the LLM
	DefaultSummaryMaxLength = 3000

	// abstractiveInputLimit caps the body handed to the LLM in the
	// abstractive stage
	abstractiveInputLimit = 8000

	abstractiveTemperature = 0.2
)

// importanceKeywords boost sentence scores during extractive selection
var importanceKeywords = []string{
	"urgent", "important", "deadline", "please", "request", "question",
	"help", "issue", "problem", "thank you", "meeting", "call",
	"appointment", "action", "required",
}

// Summarizer bounds oversized message bodies before LLM analysis. It
// tries extractive sentence selection first, then abstractive LLM
// summarization, and always falls back to deterministic truncation.
type Summarizer struct {
	client CompletionClient
	params ModelParams
	logger *zap.Logger
}

// NewSummarizer creates a new summarizer. client may be nil, in which
// case the abstractive stage is skipped.
func NewSummarizer(client CompletionClient, params ModelParams, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		client: client,
		params: params,
		logger: logger,
	}
}

// SummarizeIfNeeded returns the message body unchanged if it fits
// maxLength, otherwise a summary bounded to maxLength. The original
// message is never modified.
func (s *Summarizer) SummarizeIfNeeded(ctx context.Context, msg *Message, maxLength int) *Summary {
	body := msg.Body
	if body == "" || len(body) <= maxLength {
		return &Summary{
			Msg:             msg,
			Body:            body,
			WasSummarized:   false,
			Metadata:        fmt.Sprintf("%d chars (unchanged)", len(body)),
			EstimatedTokens: EstimateTokenCount(body),
		}
	}

	summarized, method := s.summarize(ctx, body, maxLength)

	s.logger.Debug("Summarized message body",
		zap.String("message_id", msg.ID),
		zap.String("method", method),
		zap.Int("original_size", len(body)),
		zap.Int("summary_size", len(summarized)))

	return &Summary{
		Msg:             msg,
		Body:            summarized,
		WasSummarized:   true,
		Metadata:        fmt.Sprintf("%d → %d chars (%s)", len(body), len(summarized), method),
		EstimatedTokens: EstimateTokenCount(summarized),
	}
}

// summarize runs the three-stage chain and reports which stage
// produced the result
func (s *Summarizer) summarize(ctx context.Context, body string, maxLength int) (string, string) {
	if extracted := extractiveSummary(body, maxLength); extracted != "" && len(extracted) <= maxLength {
		return extracted, "extractive"
	}

	if s.client != nil {
		abstracted, err := s.abstractiveSummary(ctx, body, maxLength)
		if err != nil {
			s.logger.Warn("Abstractive summarization failed, falling back to truncation", zap.Error(err))
		} else if abstracted != "" && len(abstracted) <= maxLength {
			return abstracted, "abstractive"
		}
	}

	return TruncateAtBoundary(body, maxLength), "truncated"
}

// extractiveSummary selects the highest-scoring sentences that fit the
// budget and re-renders them in their original order
func extractiveSummary(body string, maxLength int) string {
	sentences := splitSentences(body)
	if len(sentences) == 0 {
		return ""
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, sentence := range sentences {
		ranked[i] = scored{index: i, score: scoreSentence(sentence, i, len(sentences))}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	selected := make([]bool, len(sentences))
	total := 0
	for _, r := range ranked {
		size := len(sentences[r.index])
		if total > 0 {
			size++ // joining space
		}
		if total+size > maxLength {
			break
		}
		selected[r.index] = true
		total += size
	}

	var kept []string
	for i, sentence := range sentences {
		if selected[i] {
			kept = append(kept, sentence)
		}
	}
	return strings.Join(kept, " ")
}

// scoreSentence implements the fixed extractive scoring heuristics
func scoreSentence(sentence string, index, count int) float64 {
	score := 0.0
	if index == 0 {
		score += 2.0
	}
	if index == count-1 {
		score += 1.5
	}
	if strings.Contains(sentence, "?") {
		score += 1.0
	}

	lower := strings.ToLower(sentence)
	for _, keyword := range importanceKeywords {
		if strings.Contains(lower, keyword) {
			score += 0.5
		}
	}

	words := len(strings.Fields(sentence))
	if words >= 5 && words <= 30 {
		score += 0.3
	}

	if first, _ := utf8.DecodeRuneInString(sentence); unicode.IsUpper(first) {
		score += 0.2
	}

	return score
}

// splitSentences splits text on sentence-ending punctuation, keeping
// the terminator with each sentence
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// abstractiveSummary asks the LLM for a condensed rendition with an
// explicit word-count target and a conservative output-token budget
func (s *Summarizer) abstractiveSummary(ctx context.Context, body string, maxLength int) (string, error) {
	input := body
	if len(input) > abstractiveInputLimit {
		input = TruncateAtBoundary(input, abstractiveInputLimit)
	}

	wordTarget := maxLength / 5
	prompt := fmt.Sprintf(
		"Summarize the following email body in at most %d words. Preserve any requests, deadlines and questions. Respond with the summary only.\n\n%s",
		wordTarget, input)

	raw, err := s.client.Complete(ctx, &CompletionRequest{
		SystemPrompt: "You condense emails without losing actionable detail.",
		Prompt:       prompt,
		Model:        s.params.Model,
		Temperature:  abstractiveTemperature,
		MaxTokens:    maxLength / 4,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(raw), nil
}

// TruncateAtBoundary bounds text to maxLength, preferring a paragraph
// break, then a sentence end, then a word break, before a hard cut.
// The result, including the truncation marker, never exceeds
// maxLength. This is the only stage that must always succeed.
func TruncateAtBoundary(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	if maxLength <= len(truncationMarker) {
		return safeCut(text, maxLength)
	}

	window := safeCut(text, maxLength-len(truncationMarker))

	cut := strings.LastIndex(window, "\n\n")
	if cut <= 0 {
		cut = lastSentenceEnd(window)
	}
	if cut <= 0 {
		cut = strings.LastIndex(window, " ")
	}
	if cut <= 0 {
		cut = len(window)
	}

	return strings.TrimRight(window[:cut], " \n") + truncationMarker
}

// lastSentenceEnd returns the index just past the last sentence-ending
// punctuation, or -1
func lastSentenceEnd(text string) int {
	for i := len(text) - 1; i >= 0; i-- {
		switch text[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return -1
}

// safeCut truncates at a byte limit without splitting a UTF-8 sequence
func safeCut(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return cut
}

// EstimateTokenCount is a rough diagnostic estimate; it never drives a
// control decision
func EstimateTokenCount(text string) int {
	return len(text) / 4
}
