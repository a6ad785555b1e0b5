package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/mikey/llm-mail-triage/internal/core"
)

const rulesYAML = `
rules:
  - name: newsletters
    enabled: true
    keywords: ["unsubscribe", "newsletter"]
    mentions: ["weekly digest"]
    confidence_threshold: 0.6
    action: move_to_folder
    target_folder: Newsletters
    llm_template_id: newsletter-check
  - name: legacy
    enabled: false
    action: delete
    custom_prompt: "Treat lottery mail as a match."

templates:
  - id: newsletter-check
    system_prompt: "You classify marketing mail."
    prompt_body: "Subject: {subject}\nBody: {body}\nKeywords: {keywords}"
    requires_keywords: true
    model: mistral
    temperature: 0.3
    max_tokens: 256
  - id: bare
    prompt_body: "{body}"

auto_reply_templates:
  - id: out-of-office
    subject: "Re: {originalSubject}"
    body: "Hi {sender}, thanks for reaching out."
    include_original: true
`

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(rulesYAML)); err != nil {
		t.Fatalf("failed to read test config: %v", err)
	}
	return NewFromViper(v)
}

func TestGetRules(t *testing.T) {
	cfg := newTestConfig(t)

	rules, err := cfg.GetRules()
	if err != nil {
		t.Fatalf("GetRules() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("GetRules() returned %d rules, want 2", len(rules))
	}

	first := rules[0]
	if first.Name != "newsletters" || !first.Enabled {
		t.Errorf("unexpected first rule: %+v", first)
	}
	if first.Action != core.ActionMoveToFolder {
		t.Errorf("first rule action = %q", first.Action)
	}
	if first.ConfidenceThreshold != 0.6 {
		t.Errorf("first rule threshold = %v", first.ConfidenceThreshold)
	}
	if len(first.Keywords) != 2 || first.Keywords[0] != "unsubscribe" {
		t.Errorf("first rule keywords = %v", first.Keywords)
	}

	second := rules[1]
	if second.Enabled {
		t.Error("second rule should be disabled")
	}
	if second.CustomPrompt == "" {
		t.Error("second rule should carry its custom prompt")
	}
}

func TestGetTemplates(t *testing.T) {
	cfg := newTestConfig(t)

	templates, err := cfg.GetTemplates()
	if err != nil {
		t.Fatalf("GetTemplates() error = %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("GetTemplates() returned %d templates, want 2", len(templates))
	}

	overridden := templates[0]
	if overridden.ID != "newsletter-check" {
		t.Fatalf("first template id = %q", overridden.ID)
	}
	if !overridden.RequiresKeywords {
		t.Error("requires_keywords not decoded")
	}
	if overridden.Model != "mistral" {
		t.Errorf("model override = %q", overridden.Model)
	}
	if overridden.Temperature == nil || *overridden.Temperature != 0.3 {
		t.Errorf("temperature override = %v", overridden.Temperature)
	}
	if overridden.MaxTokens == nil || *overridden.MaxTokens != 256 {
		t.Errorf("max_tokens override = %v", overridden.MaxTokens)
	}

	bare := templates[1]
	if bare.Temperature != nil || bare.MaxTokens != nil || bare.Model != "" {
		t.Errorf("absent overrides should stay unset, got %+v", bare)
	}
}

func TestGetAutoReplyTemplates(t *testing.T) {
	cfg := newTestConfig(t)

	replies, err := cfg.GetAutoReplyTemplates()
	if err != nil {
		t.Fatalf("GetAutoReplyTemplates() error = %v", err)
	}
	if len(replies) != 1 {
		t.Fatalf("GetAutoReplyTemplates() returned %d templates, want 1", len(replies))
	}
	reply := replies[0]
	if reply.ID != "out-of-office" || !reply.IncludeOriginal {
		t.Errorf("unexpected auto-reply template: %+v", reply)
	}
}

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	if got := cfg.GetLLM().Provider; got != "ollama" {
		t.Errorf("default llm provider = %q", got)
	}
	if got := cfg.GetMail().FilteredLabel; got != "Filtered" {
		t.Errorf("default filtered label = %q", got)
	}
	if got := cfg.GetSummary().MaxLength; got != 3000 {
		t.Errorf("default summary max length = %d", got)
	}
	if got := cfg.GetHistory().Type; got != "memory" {
		t.Errorf("default history type = %q", got)
	}
}
