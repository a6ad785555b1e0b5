package config

import (
	"fmt"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// Decoding targets for the rule, template and auto-reply lists. Core
// types stay free of configuration tags; these structs carry them.

type ruleSpec struct {
	Name                string   `mapstructure:"name"`
	Enabled             bool     `mapstructure:"enabled"`
	Keywords            []string `mapstructure:"keywords"`
	Mentions            []string `mapstructure:"mentions"`
	Topics              []string `mapstructure:"topics"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"`
	Action              string   `mapstructure:"action"`
	TargetFolder        string   `mapstructure:"target_folder"`
	AutoReplyTemplateID string   `mapstructure:"auto_reply_template_id"`
	LLMTemplateID       string   `mapstructure:"llm_template_id"`
	CustomPrompt        string   `mapstructure:"custom_prompt"`
}

type exampleSpec struct {
	Subject        string `mapstructure:"subject"`
	Body           string `mapstructure:"body"`
	ExpectedResult string `mapstructure:"expected_result"`
	Explanation    string `mapstructure:"explanation"`
}

type templateSpec struct {
	ID               string        `mapstructure:"id"`
	SystemPrompt     string        `mapstructure:"system_prompt"`
	PromptBody       string        `mapstructure:"prompt_body"`
	OutputFormat     string        `mapstructure:"output_format"`
	Examples         []exampleSpec `mapstructure:"examples"`
	Model            string        `mapstructure:"model"`
	Temperature      *float32      `mapstructure:"temperature"`
	MaxTokens        *int          `mapstructure:"max_tokens"`
	RequiresKeywords bool          `mapstructure:"requires_keywords"`
	RequiresTopics   bool          `mapstructure:"requires_topics"`
	RequiresMentions bool          `mapstructure:"requires_mentions"`
}

type autoReplySpec struct {
	ID              string `mapstructure:"id"`
	Subject         string `mapstructure:"subject"`
	Body            string `mapstructure:"body"`
	IncludeOriginal bool   `mapstructure:"include_original"`
}

// GetRules returns the ordered filtering rules
func (c *Config) GetRules() ([]core.Rule, error) {
	var specs []ruleSpec
	if err := c.v.UnmarshalKey("rules", &specs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}

	rules := make([]core.Rule, 0, len(specs))
	for _, spec := range specs {
		rules = append(rules, core.Rule{
			Name:                spec.Name,
			Enabled:             spec.Enabled,
			Keywords:            spec.Keywords,
			Mentions:            spec.Mentions,
			Topics:              spec.Topics,
			ConfidenceThreshold: spec.ConfidenceThreshold,
			Action:              core.FilterAction(spec.Action),
			TargetFolder:        spec.TargetFolder,
			AutoReplyTemplateID: spec.AutoReplyTemplateID,
			LLMTemplateID:       spec.LLMTemplateID,
			CustomPrompt:        spec.CustomPrompt,
		})
	}
	return rules, nil
}

// GetTemplates returns the configured analysis templates
func (c *Config) GetTemplates() ([]core.Template, error) {
	var specs []templateSpec
	if err := c.v.UnmarshalKey("templates", &specs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal templates: %w", err)
	}

	templates := make([]core.Template, 0, len(specs))
	for _, spec := range specs {
		examples := make([]core.FewShotExample, 0, len(spec.Examples))
		for _, ex := range spec.Examples {
			examples = append(examples, core.FewShotExample{
				Subject:        ex.Subject,
				Body:           ex.Body,
				ExpectedResult: ex.ExpectedResult,
				Explanation:    ex.Explanation,
			})
		}
		templates = append(templates, core.Template{
			ID:               spec.ID,
			SystemPrompt:     spec.SystemPrompt,
			PromptBody:       spec.PromptBody,
			OutputFormat:     spec.OutputFormat,
			Examples:         examples,
			Model:            spec.Model,
			Temperature:      spec.Temperature,
			MaxTokens:        spec.MaxTokens,
			RequiresKeywords: spec.RequiresKeywords,
			RequiresTopics:   spec.RequiresTopics,
			RequiresMentions: spec.RequiresMentions,
		})
	}
	return templates, nil
}

// GetAutoReplyTemplates returns the configured auto-reply templates
func (c *Config) GetAutoReplyTemplates() ([]core.AutoReplyTemplate, error) {
	var specs []autoReplySpec
	if err := c.v.UnmarshalKey("auto_reply_templates", &specs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auto-reply templates: %w", err)
	}

	templates := make([]core.AutoReplyTemplate, 0, len(specs))
	for _, spec := range specs {
		templates = append(templates, core.AutoReplyTemplate{
			ID:              spec.ID,
			Subject:         spec.Subject,
			Body:            spec.Body,
			IncludeOriginal: spec.IncludeOriginal,
		})
	}
	return templates, nil
}
