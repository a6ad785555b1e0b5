package core

import (
	"strings"
	"unicode/utf8"
)

const (
	// promptBodyLimit bounds the body text substituted into a prompt
	promptBodyLimit = 1000

	truncationMarker = "... [truncated]"

	defaultPromptHeader = "You are an email filter assistant. Analyze the email below and decide whether it matches the filtering criteria."

	jsonSchemaInstruction = `Respond with a JSON object: {"match": bool, "confidence": 0.0-1.0, "reason": string, "topics": [string], "mentions": [string]}`
)

// TemplateStore holds the long-lived analysis and auto-reply templates
// loaded from configuration. Lookups are read-only after construction.
type TemplateStore struct {
	templates   map[string]*Template
	autoReplies map[string]*AutoReplyTemplate
}

// NewTemplateStore creates a template store from configured lists
func NewTemplateStore(templates []Template, autoReplies []AutoReplyTemplate) *TemplateStore {
	s := &TemplateStore{
		templates:   make(map[string]*Template, len(templates)),
		autoReplies: make(map[string]*AutoReplyTemplate, len(autoReplies)),
	}
	for i := range templates {
		s.templates[templates[i].ID] = &templates[i]
	}
	for i := range autoReplies {
		s.autoReplies[autoReplies[i].ID] = &autoReplies[i]
	}
	return s
}

// Template returns the analysis template with the given id
func (s *TemplateStore) Template(id string) (*Template, bool) {
	t, ok := s.templates[id]
	return t, ok
}

// AutoReply returns the auto-reply template with the given id
func (s *TemplateStore) AutoReply(id string) (*AutoReplyTemplate, bool) {
	t, ok := s.autoReplies[id]
	return t, ok
}

// PromptBuilder constructs the analysis prompt for a (message, rule)
// pair, either from the rule's named template or from the default
// structured prompt.
type PromptBuilder struct {
	store    *TemplateStore
	defaults ModelParams
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder(store *TemplateStore, defaults ModelParams) *PromptBuilder {
	return &PromptBuilder{
		store:    store,
		defaults: defaults,
	}
}

// Build resolves the prompt and model parameters for a rule. A rule
// referencing a missing template falls back to the default prompt.
func (b *PromptBuilder) Build(msg *Message, rule *Rule) (string, ModelParams) {
	if rule.LLMTemplateID != "" {
		if tmpl, ok := b.store.Template(rule.LLMTemplateID); ok {
			return b.BuildFromTemplate(msg, rule, tmpl), b.ResolveParams(tmpl)
		}
	}
	return b.buildDefault(msg, rule), b.defaults
}

// BuildFromTemplate renders a named template: system prompt, few-shot
// examples, the prompt body with placeholders substituted, then the
// output-format description verbatim.
func (b *PromptBuilder) BuildFromTemplate(msg *Message, rule *Rule, tmpl *Template) string {
	var sb strings.Builder

	if tmpl.SystemPrompt != "" {
		sb.WriteString(tmpl.SystemPrompt)
		sb.WriteString("\n\n")
	}

	for _, ex := range tmpl.Examples {
		sb.WriteString("Example:\n")
		sb.WriteString("Subject: " + ex.Subject + "\n")
		sb.WriteString("Body: " + ex.Body + "\n")
		sb.WriteString("Expected result: " + ex.ExpectedResult + "\n")
		if ex.Explanation != "" {
			sb.WriteString("Explanation: " + ex.Explanation + "\n")
		}
		sb.WriteString("\n")
	}

	replacer := strings.NewReplacer(
		"{from}", msg.From(),
		"{subject}", msg.Subject,
		"{body}", truncateForPrompt(msg.Body),
		"{keywords}", criteriaList(rule.Keywords, tmpl.RequiresKeywords),
		"{topics}", criteriaList(rule.Topics, tmpl.RequiresTopics),
		"{mentions}", criteriaList(rule.Mentions, tmpl.RequiresMentions),
	)
	sb.WriteString(replacer.Replace(tmpl.PromptBody))

	if tmpl.OutputFormat != "" {
		sb.WriteString("\n\n")
		sb.WriteString(tmpl.OutputFormat)
	}

	return sb.String()
}

// buildDefault renders the built-in structured prompt used when a rule
// has no template. The deprecated custom prompt is only honored here.
func (b *PromptBuilder) buildDefault(msg *Message, rule *Rule) string {
	var sb strings.Builder

	sb.WriteString(defaultPromptHeader)
	sb.WriteString("\n\nEMAIL:\n")
	sb.WriteString("From: " + msg.From() + "\n")
	sb.WriteString("Subject: " + msg.Subject + "\n")
	sb.WriteString("Body:\n" + truncateForPrompt(msg.Body) + "\n")

	var criteria []string
	if len(rule.Keywords) > 0 {
		criteria = append(criteria, "Keywords: "+strings.Join(rule.Keywords, ", "))
	}
	if len(rule.Topics) > 0 {
		criteria = append(criteria, "Topics: "+strings.Join(rule.Topics, ", "))
	}
	if len(rule.Mentions) > 0 {
		criteria = append(criteria, "Mentions: "+strings.Join(rule.Mentions, ", "))
	}
	if len(criteria) > 0 {
		sb.WriteString("\nCRITERIA:\n")
		sb.WriteString(strings.Join(criteria, "\n"))
		sb.WriteString("\n")
	}

	if rule.CustomPrompt != "" {
		sb.WriteString("\nADDITIONAL INSTRUCTIONS:\n")
		sb.WriteString(rule.CustomPrompt)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(jsonSchemaInstruction)

	return sb.String()
}

// ResolveParams resolves per-template overrides against the global
// defaults. The fallback is evaluated per call so a global default
// change affects templates that did not override it.
func (b *PromptBuilder) ResolveParams(tmpl *Template) ModelParams {
	params := b.defaults
	if tmpl == nil {
		return params
	}
	if tmpl.Model != "" {
		params.Model = tmpl.Model
	}
	if tmpl.Temperature != nil {
		params.Temperature = *tmpl.Temperature
	}
	if tmpl.MaxTokens != nil {
		params.MaxTokens = *tmpl.MaxTokens
	}
	return params
}

// Defaults returns the global model parameters
func (b *PromptBuilder) Defaults() ModelParams {
	return b.defaults
}

// criteriaList joins a rule list for substitution, or yields the
// literal "None" when the template does not require it or it is empty
func criteriaList(items []string, required bool) string {
	if !required || len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

// truncateForPrompt bounds the body to the fixed prompt window, keeping
// the cut on a valid UTF-8 boundary
func truncateForPrompt(body string) string {
	if len(body) <= promptBodyLimit {
		return body
	}
	truncated := body[:promptBodyLimit]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + truncationMarker
}
