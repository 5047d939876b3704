package config

import (
	"fmt"
	"os"
	"strings"

	"clinic-chat/models"
)

// Templates holds the per-context system and welcome message templates.
// Procedure templates may contain the {PROCEDURE_NAME} placeholder.
type Templates struct {
	SystemDefault           string
	SystemProcedure         string
	SystemContraindications string
	SystemPrices            string

	WelcomeDefault           string
	WelcomeProcedure         string
	WelcomeContraindications string
	WelcomePrices            string
}

// Config is the complete runtime configuration, loaded from the
// environment at startup.
type Config struct {
	Port        string
	DatabaseURL string

	// History controls whether conversations and messages are persisted.
	History bool

	Model           string
	AssistantID     string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Base URLs are overridable for tests and self-hosted gateways.
	OpenAIBaseURL    string
	AnthropicBaseURL string

	Templates Templates
}

const (
	defaultModel            = "gpt-4o-mini"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
)

const (
	defaultSystemDefault = "You are a friendly assistant for a cosmetology clinic. " +
		"Answer questions about the clinic's services politely and concisely."
	defaultSystemProcedure = "You are a friendly assistant for a cosmetology clinic. " +
		"The visitor is reading about the {PROCEDURE_NAME} procedure. " +
		"Answer questions about {PROCEDURE_NAME}: how it works, preparation, and aftercare."
	defaultSystemContraindications = "You are a friendly assistant for a cosmetology clinic. " +
		"The visitor is reading about contraindications. Explain contraindications for " +
		"the clinic's procedures and always advise consulting a specialist."
	defaultSystemPrices = "You are a friendly assistant for a cosmetology clinic. " +
		"The visitor is viewing the price list. Help them understand pricing and " +
		"suggest booking a consultation for an exact quote."

	defaultWelcomeDefault           = "Hi! How can I help you today?"
	defaultWelcomeProcedure         = "Hi! Do you have questions about {PROCEDURE_NAME}?"
	defaultWelcomeContraindications = "Hi! Ask me about contraindications for our procedures."
	defaultWelcomePrices            = "Hi! Ask me anything about our prices."
)

// Load reads configuration from the environment. DATABASE_URL is required
// (durable workflows run on Postgres); exactly which API key is required
// depends on the configured model, checked here so a misconfigured
// deployment fails at startup rather than on the first chat turn.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg := &Config{
		Port:             envOr("PORT", "8080"),
		DatabaseURL:      dbURL,
		History:          envOr("CHAT_HISTORY", "true") != "false",
		Model:            envOr("CHAT_MODEL", defaultModel),
		AssistantID:      os.Getenv("OPENAI_ASSISTANT_ID"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIBaseURL:    strings.TrimRight(envOr("OPENAI_BASE_URL", defaultOpenAIBaseURL), "/"),
		AnthropicBaseURL: strings.TrimRight(envOr("ANTHROPIC_BASE_URL", defaultAnthropicBaseURL), "/"),
		Templates: Templates{
			SystemDefault:            envOr("SYSTEM_MESSAGE_DEFAULT", defaultSystemDefault),
			SystemProcedure:          envOr("SYSTEM_MESSAGE_PROCEDURE", defaultSystemProcedure),
			SystemContraindications:  envOr("SYSTEM_MESSAGE_CONTRAINDICATIONS", defaultSystemContraindications),
			SystemPrices:             envOr("SYSTEM_MESSAGE_PRICES", defaultSystemPrices),
			WelcomeDefault:           envOr("WELCOME_MESSAGE_DEFAULT", defaultWelcomeDefault),
			WelcomeProcedure:         envOr("WELCOME_MESSAGE_PROCEDURE", defaultWelcomeProcedure),
			WelcomeContraindications: envOr("WELCOME_MESSAGE_CONTRAINDICATIONS", defaultWelcomeContraindications),
			WelcomePrices:            envOr("WELCOME_MESSAGE_PRICES", defaultWelcomePrices),
		},
	}

	if strings.Contains(cfg.Model, "claude") {
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required for model %q", cfg.Model)
		}
	} else if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for model %q", cfg.Model)
	}

	return cfg, nil
}

// ParseContext normalizes the widget-supplied context tag. Unknown tags
// fall back to the default context rather than failing.
func ParseContext(s string) models.PageContext {
	switch models.PageContext(s) {
	case models.ContextProcedure:
		return models.ContextProcedure
	case models.ContextContraindications:
		return models.ContextContraindications
	case models.ContextPrices:
		return models.ContextPrices
	default:
		return models.ContextDefault
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
