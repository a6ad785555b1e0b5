package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/llm-mail-triage/")
	v.AddConfigPath("$HOME/.llm-mail-triage")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAIL_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.model", "llama3")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 1000)

	// Ollama defaults
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.timeout", "120s")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.top_p", 0.9)

	// Mail provider defaults
	v.SetDefault("mail.provider", "imap")
	v.SetDefault("mail.max_results", 25)
	v.SetDefault("mail.filtered_label", "Filtered")

	// IMAP defaults
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.tls_skip_verify", false)
	v.SetDefault("imap.trash_folder", "Trash")
	v.SetDefault("imap.spam_folder", "Junk")
	v.SetDefault("imap.archive_folder", "Archive")
	v.SetDefault("imap.smtp_host", "")
	v.SetDefault("imap.smtp_port", 587)
	v.SetDefault("imap.smtp_from", "")

	// Gmail defaults
	v.SetDefault("gmail.access_token", "")
	v.SetDefault("gmail.user_email", "")

	// Summarization defaults
	v.SetDefault("summary.max_length", 3000)

	// History defaults
	v.SetDefault("history.type", "memory")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.ttl", "168h")
	v.SetDefault("history.cleanup_frequency", "1h")
	v.SetDefault("history.sqlite_path", "/data/mail_triage.db")
	v.SetDefault("history.mysql_dsn", "user:password@tcp(localhost:3306)/mail_triage")

	// Poller defaults
	v.SetDefault("poller.enabled", true)
	v.SetDefault("poller.schedule", "@every 5m")

	// Whitelist defaults
	v.SetDefault("whitelist.domains", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
