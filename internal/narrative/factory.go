package narrative

import (
	"github.com/sirupsen/logrus"

	"github.com/pcos-screening-server/internal/domain"
)

// NewFromConfig selects a generator. Without a base URL the offline template
// generator is used; otherwise the chat client runs behind a circuit breaker
// that falls back to the template.
func NewFromConfig(config domain.NarrativeConfig, logger *logrus.Logger) domain.NarrativeGenerator {
	template := NewTemplateGenerator()
	if config.BaseURL == "" {
		return template
	}

	chat := NewChatGenerator(ChatConfig{
		BaseURL:   config.BaseURL,
		APIKey:    config.APIKey,
		Model:     config.Model,
		Timeout:   config.Timeout,
		RateLimit: config.RateLimit,
		MaxTokens: config.MaxTokens,
	})
	return NewBreakerGenerator(chat, template, BreakerConfig{Timeout: config.BreakerTimeout}, logger)
}
