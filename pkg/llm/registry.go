package llm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownProvider is returned by NewProvider for unregistered names.
var ErrUnknownProvider = errors.New("unknown provider")

// ProviderFactory creates providers from config.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// DefaultModels maps provider names to their default models.
var DefaultModels = map[string]string{
	"gemini":    "gemini-2.5-flash",
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-sonnet-4-20250514",
	"ollama":    "llama3.2",
}

// Recommendation is a suggested model for a use case.
type Recommendation struct {
	UseCase string
	Model   string
	Note    string
}

// Recommendations lists suggested models by use case, in display order.
var Recommendations = []Recommendation{
	{UseCase: "general purpose", Model: "gemini-2.5-flash", Note: "fast, cost-effective default"},
	{UseCase: "accuracy", Model: "gemini-2.5-pro", Note: "complex layouts and reasoning"},
	{UseCase: "speed", Model: "gemini-2.5-flash-lite", Note: "lowest latency"},
	{UseCase: "openai", Model: "gpt-4o-mini", Note: "requires OPENAI_API_KEY"},
	{UseCase: "anthropic", Model: "claude-sonnet-4-20250514", Note: "requires ANTHROPIC_API_KEY"},
	{UseCase: "local", Model: "llama3.2", Note: "runs on a local Ollama, no API key"},
}

// KeyEnvVars lists the environment variables checked for each provider's API
// key, in priority order.
var KeyEnvVars = map[string][]string{
	"gemini":    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
}

// FallbackKeyEnvVar is accepted as the API key for any provider when the
// provider-specific variables are unset.
const FallbackKeyEnvVar = "LANGEXTRACT_API_KEY"

// DetectionOrder is the order in which providers are tried when neither a
// provider nor a model is given.
var DetectionOrder = []string{"gemini", "openai", "anthropic"}

var registry = map[string]ProviderFactory{}

func init() {
	RegisterProvider("gemini", func(cfg ProviderConfig) (Provider, error) {
		return NewGeminiProvider(cfg)
	})
	RegisterProvider("openai", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(cfg)
	})
	RegisterProvider("anthropic", func(cfg ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(cfg)
	})
	RegisterProvider("ollama", func(cfg ProviderConfig) (Provider, error) {
		return NewOllamaProvider(cfg)
	})
}

// NewProvider creates a provider by name.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, name, strings.Join(AvailableProviders(), ", "))
	}
	return factory(cfg)
}

// RegisterProvider adds a custom provider factory.
func RegisterProvider(name string, factory ProviderFactory) {
	registry[name] = factory
}

// AvailableProviders returns the registered provider names, sorted.
func AvailableProviders() []string {
	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// IsRegistered returns true if a provider is registered.
func IsRegistered(name string) bool {
	_, ok := registry[name]
	return ok
}

// GetDefaultModel returns the default model for a provider.
func GetDefaultModel(provider string) string {
	return DefaultModels[provider]
}

// RequiresAPIKey reports whether the provider needs an API key.
func RequiresAPIKey(provider string) bool {
	return provider != "ollama"
}

// ProviderForModel infers the provider from a model id. Unknown ids map to
// gemini.
func ProviderForModel(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return "openai"
	case strings.HasPrefix(m, "claude"):
		return "anthropic"
	case strings.HasPrefix(m, "gemini"):
		return "gemini"
	case strings.HasPrefix(m, "llama"), strings.HasPrefix(m, "mistral"), strings.HasPrefix(m, "qwen"),
		strings.HasPrefix(m, "phi"), strings.HasPrefix(m, "gemma"):
		return "ollama"
	default:
		return "gemini"
	}
}
