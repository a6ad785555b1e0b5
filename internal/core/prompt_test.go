package core

import (
	"strings"
	"testing"
)

func testMessage() *Message {
	return &Message{
		ID:       "m1",
		FromAddr: "alice@example.com",
		FromName: "Alice",
		Subject:  "Quarterly invoice",
		Body:     "Please find the invoice attached.",
	}
}

func TestBuildFromTemplateSubstitution(t *testing.T) {
	tmpl := Template{
		ID:           "t1",
		SystemPrompt: "You judge invoices.",
		PromptBody:   "From: {from}\nSubject: {subject}\nBody: {body}\nKeywords: {keywords}\nTopics: {topics}\nMentions: {mentions}",
		OutputFormat: "Answer in JSON.",
		Examples: []FewShotExample{
			{Subject: "ex-subject", Body: "ex-body", ExpectedResult: "match", Explanation: "because"},
		},
		RequiresKeywords: true,
		RequiresTopics:   false,
		RequiresMentions: true,
	}
	rule := &Rule{
		Name:          "invoices",
		LLMTemplateID: "t1",
		Keywords:      []string{"invoice", "payment"},
		Topics:        []string{"finance"},
		Mentions:      nil,
	}

	b := NewPromptBuilder(NewTemplateStore([]Template{tmpl}, nil), ModelParams{Model: "llama3"})
	prompt, _ := b.Build(testMessage(), rule)

	for _, want := range []string{
		"You judge invoices.",
		"Example:\nSubject: ex-subject",
		"Expected result: match",
		"From: Alice",
		"Subject: Quarterly invoice",
		"Keywords: invoice, payment",
		"Topics: None",   // RequiresTopics is false
		"Mentions: None", // required but empty
		"Answer in JSON.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestBuildFallsBackToDefaultOnMissingTemplate(t *testing.T) {
	b := NewPromptBuilder(NewTemplateStore(nil, nil), ModelParams{Model: "llama3"})
	rule := &Rule{Name: "r", LLMTemplateID: "nope", Keywords: []string{"invoice"}}

	prompt, _ := b.Build(testMessage(), rule)
	if !strings.Contains(prompt, defaultPromptHeader) {
		t.Fatal("expected the default prompt when the template id is unknown")
	}
}

func TestBuildDefaultPrompt(t *testing.T) {
	b := NewPromptBuilder(NewTemplateStore(nil, nil), ModelParams{Model: "llama3"})
	rule := &Rule{
		Name:         "r",
		Keywords:     []string{"invoice"},
		CustomPrompt: "Prefer EU suppliers.",
	}

	prompt, _ := b.Build(testMessage(), rule)
	if !strings.Contains(prompt, "Keywords: invoice") {
		t.Error("missing keywords section")
	}
	if strings.Contains(prompt, "Topics:") || strings.Contains(prompt, "Mentions:") {
		t.Error("empty criteria sections must be omitted")
	}
	if !strings.Contains(prompt, "ADDITIONAL INSTRUCTIONS:\nPrefer EU suppliers.") {
		t.Error("missing custom prompt block")
	}
	if !strings.Contains(prompt, jsonSchemaInstruction) {
		t.Error("missing JSON schema instruction")
	}
}

func TestCustomPromptIgnoredOnTemplatePath(t *testing.T) {
	tmpl := Template{ID: "t1", PromptBody: "Judge: {subject}"}
	b := NewPromptBuilder(NewTemplateStore([]Template{tmpl}, nil), ModelParams{})
	rule := &Rule{LLMTemplateID: "t1", CustomPrompt: "Prefer EU suppliers."}

	prompt, _ := b.Build(testMessage(), rule)
	if strings.Contains(prompt, "Prefer EU suppliers.") {
		t.Fatal("deprecated custom prompt must only apply to the default path")
	}
}

func TestPromptBodyTruncation(t *testing.T) {
	msg := testMessage()
	msg.Body = strings.Repeat("a", 5000)

	b := NewPromptBuilder(NewTemplateStore(nil, nil), ModelParams{})
	prompt, _ := b.Build(msg, &Rule{Name: "r"})

	if !strings.Contains(prompt, strings.Repeat("a", promptBodyLimit)+truncationMarker) {
		t.Fatal("body should be cut to the fixed window with a marker")
	}
	if strings.Contains(prompt, strings.Repeat("a", promptBodyLimit+1)) {
		t.Fatal("body exceeds the prompt window")
	}
}

func TestResolveParamsFallbackChain(t *testing.T) {
	defaults := ModelParams{Model: "llama3", Temperature: 0.1, MaxTokens: 500}
	b := NewPromptBuilder(NewTemplateStore(nil, nil), defaults)

	if got := b.ResolveParams(nil); got != defaults {
		t.Fatalf("nil template should yield defaults, got %+v", got)
	}

	temp := float32(0.7)
	tokens := 200
	tmpl := &Template{ID: "t", Model: "mistral", Temperature: &temp, MaxTokens: &tokens}
	got := b.ResolveParams(tmpl)
	if got.Model != "mistral" || got.Temperature != 0.7 || got.MaxTokens != 200 {
		t.Fatalf("overrides not applied: %+v", got)
	}

	partial := &Template{ID: "p", MaxTokens: &tokens}
	got = b.ResolveParams(partial)
	if got.Model != "llama3" || got.Temperature != 0.1 || got.MaxTokens != 200 {
		t.Fatalf("partial override resolved wrong: %+v", got)
	}
}
