package providers

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/engine"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// Provider names accepted by NewLLMClient.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// DefaultProvider is used when none is configured.
const DefaultProvider = ProviderGemini

// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// ErrMissingAPIKey is returned when a hosted provider has no credential.
var ErrMissingAPIKey = errors.New("api key not set")

// Settings selects and configures a provider. Empty fields fall back to the
// provider's environment variables, then to built-in defaults.
type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

type providerDefaults struct {
	keyEnv     string
	modelEnv   string
	model      string
	baseURLEnv string
	baseURL    string
	keyless    bool
}

var defaults = map[string]providerDefaults{
	ProviderGemini: {
		keyEnv:   "GEMINI_API_KEY",
		modelEnv: "GEMINI_MODEL",
		model:    "gemini-2.5-flash",
		baseURL:  GeminiBaseURL,
	},
	ProviderOpenAI: {
		keyEnv:     "OPENAI_API_KEY",
		modelEnv:   "OPENAI_MODEL",
		model:      "gpt-4o-mini",
		baseURLEnv: "OPENAI_BASE_URL",
	},
	ProviderAnthropic: {
		keyEnv:     "ANTHROPIC_API_KEY",
		modelEnv:   "ANTHROPIC_MODEL",
		model:      "claude-3-5-sonnet-latest",
		baseURLEnv: "ANTHROPIC_BASE_URL",
	},
	ProviderOllama: {
		keyEnv:     "OLLAMA_API_KEY",
		modelEnv:   "OLLAMA_MODEL",
		model:      "llama3.1",
		baseURLEnv: "OLLAMA_BASE_URL",
		baseURL:    "http://localhost:11434/v1",
		keyless:    true,
	},
}

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama}
}

// Resolve fills the empty fields of s from the environment and defaults.
func Resolve(s Settings) (Settings, error) {
	if s.Provider == "" {
		s.Provider = DefaultProvider
	}
	d, ok := defaults[s.Provider]
	if !ok {
		return s, fmt.Errorf("unknown provider: %s (supported: gemini, openai, anthropic, ollama)", s.Provider)
	}

	if s.APIKey == "" {
		s.APIKey = os.Getenv(d.keyEnv)
	}
	if s.APIKey == "" {
		if !d.keyless {
			return s, fmt.Errorf("%s: %w (set %s or save a key)", s.Provider, ErrMissingAPIKey, d.keyEnv)
		}
		s.APIKey = s.Provider
	}

	if s.Model == "" {
		s.Model = os.Getenv(d.modelEnv)
	}
	if s.Model == "" {
		s.Model = d.model
	}

	if s.BaseURL == "" && d.baseURLEnv != "" {
		s.BaseURL = os.Getenv(d.baseURLEnv)
	}
	if s.BaseURL == "" {
		s.BaseURL = d.baseURL
	}
	return s, nil
}

// NewLLMClient creates the engine.LLMClient for s and returns it with the
// resolved model name.
func NewLLMClient(s Settings, logger *zap.Logger) (engine.LLMClient, string, error) {
	resolved, err := Resolve(s)
	if err != nil {
		return nil, "", err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("provider", resolved.Provider), zap.String("model", resolved.Model))

	switch resolved.Provider {
	case ProviderAnthropic:
		var opts []anthropic.ClientOption
		if resolved.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(resolved.BaseURL))
		}
		client, err := NewAnthropicClient(resolved.APIKey, resolved.Model, logger, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return client, resolved.Model, nil

	default:
		client, err := NewOpenAIClient(resolved.APIKey, resolved.Model, resolved.BaseURL, logger)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create %s client: %w", resolved.Provider, err)
		}
		return client, resolved.Model, nil
	}
}
