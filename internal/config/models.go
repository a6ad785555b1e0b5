package config

// LLMConfig represents the provider selection and global generation
// defaults. Per-template overrides take precedence at call time.
type LLMConfig struct {
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OllamaConfig represents the configuration for a local Ollama server
type OllamaConfig struct {
	BaseURL string
	Timeout string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region  string
	ModelID string
	TopP    float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey string
	TopP   float32
}

// MailConfig represents the mail provider selection
type MailConfig struct {
	Provider      string
	MaxResults    int
	FilteredLabel string
}

// IMAPConfig represents the configuration for a generic IMAP mailbox
type IMAPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	Mailbox       string
	TLSSkipVerify bool
	TrashFolder   string
	SpamFolder    string
	ArchiveFolder string
	SMTPHost      string
	SMTPPort      int
	SMTPFrom      string
}

// GmailConfig represents the configuration for the Gmail API
type GmailConfig struct {
	AccessToken string
	UserEmail   string
}

// SummaryConfig represents the summarization configuration
type SummaryConfig struct {
	MaxLength int
}

// HistoryConfig represents the outcome history store configuration
type HistoryConfig struct {
	Type             string
	Enabled          bool
	TTL              string
	CleanupFrequency string
	SQLitePath       string
	MySQLDSN         string
}

// PollerConfig represents the batch scheduler configuration
type PollerConfig struct {
	Enabled  bool
	Schedule string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:    c.GetString("llm.provider"),
		Model:       c.GetString("llm.model"),
		Temperature: float32(c.GetFloat64("llm.temperature")),
		MaxTokens:   c.GetInt("llm.max_tokens"),
	}
}

// GetOllama returns the Ollama configuration
func (c *Config) GetOllama() OllamaConfig {
	return OllamaConfig{
		BaseURL: c.GetString("ollama.base_url"),
		Timeout: c.GetString("ollama.timeout"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  c.GetString("openai.api_key"),
		BaseURL: c.GetString("openai.base_url"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:  c.GetString("bedrock.region"),
		ModelID: c.GetString("bedrock.model_id"),
		TopP:    float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey: c.GetString("gemini.api_key"),
		TopP:   float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetMail returns the mail provider configuration
func (c *Config) GetMail() MailConfig {
	return MailConfig{
		Provider:      c.GetString("mail.provider"),
		MaxResults:    c.GetInt("mail.max_results"),
		FilteredLabel: c.GetString("mail.filtered_label"),
	}
}

// GetIMAP returns the IMAP configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Host:          c.GetString("imap.host"),
		Port:          c.GetInt("imap.port"),
		Username:      c.GetString("imap.username"),
		Password:      c.GetString("imap.password"),
		Mailbox:       c.GetString("imap.mailbox"),
		TLSSkipVerify: c.GetBool("imap.tls_skip_verify"),
		TrashFolder:   c.GetString("imap.trash_folder"),
		SpamFolder:    c.GetString("imap.spam_folder"),
		ArchiveFolder: c.GetString("imap.archive_folder"),
		SMTPHost:      c.GetString("imap.smtp_host"),
		SMTPPort:      c.GetInt("imap.smtp_port"),
		SMTPFrom:      c.GetString("imap.smtp_from"),
	}
}

// GetGmail returns the Gmail configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		AccessToken: c.GetString("gmail.access_token"),
		UserEmail:   c.GetString("gmail.user_email"),
	}
}

// GetSummary returns the summarization configuration
func (c *Config) GetSummary() SummaryConfig {
	return SummaryConfig{
		MaxLength: c.GetInt("summary.max_length"),
	}
}

// GetHistory returns the history store configuration
func (c *Config) GetHistory() HistoryConfig {
	return HistoryConfig{
		Type:             c.GetString("history.type"),
		Enabled:          c.GetBool("history.enabled"),
		TTL:              c.GetString("history.ttl"),
		CleanupFrequency: c.GetString("history.cleanup_frequency"),
		SQLitePath:       c.GetString("history.sqlite_path"),
		MySQLDSN:         c.GetString("history.mysql_dsn"),
	}
}

// GetPoller returns the batch scheduler configuration
func (c *Config) GetPoller() PollerConfig {
	return PollerConfig{
		Enabled:  c.GetBool("poller.enabled"),
		Schedule: c.GetString("poller.schedule"),
	}
}

// GetWhitelistedDomains returns the sender domains that bypass filtering
func (c *Config) GetWhitelistedDomains() []string {
	return c.GetStringSlice("whitelist.domains")
}
