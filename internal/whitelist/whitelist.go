package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether a sender's domain is exempt from filtering.
// Whitelisted senders bypass the whole rule loop with no LLM calls.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			normalized = append(normalized, d)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized sender whitelist", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsWhitelisted checks if the sender's domain is in the whitelist. A
// nil checker whitelists nothing.
func (c *Checker) IsWhitelisted(from string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	parts := strings.Split(from, "@")
	if len(parts) != 2 {
		return false
	}
	domain := strings.ToLower(parts[1])

	for _, whitelisted := range c.domains {
		if whitelisted == domain {
			if c.logger != nil {
				c.logger.Debug("Sender domain is whitelisted",
					zap.String("domain", domain),
					zap.String("sender", from))
			}
			return true
		}
	}

	return false
}
