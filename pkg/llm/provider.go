// Package llm provides a unified interface for the LLM providers used to
// extract fields from document text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrMissingAPIKey is returned by provider constructors that need an API key
// when none was configured.
var ErrMissingAPIKey = errors.New("API key required")

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
}

// Request represents a completion request to the LLM.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONSchema  map[string]any // For structured output
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
	}
}

// Response represents the result of an LLM execution.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string // Actual model used, may differ from the requested alias
	Cost         float64
	Duration     time.Duration
}

// Provider is the core interface that all LLM backends must implement.
type Provider interface {
	// Execute sends a completion request and returns the response.
	Execute(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g., "gemini", "anthropic").
	Name() string

	// Model returns the configured model name.
	Model() string
}

// CostEstimator is an optional interface for providers that can estimate
// costs based on token counts without making an API call.
type CostEstimator interface {
	EstimateCost(modelID string, inputTokens, outputTokens int) float64
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string // For custom endpoints or a non-default Ollama host
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// APIError is a failed call to a provider. StatusCode is zero when the
// request never got an HTTP response.
type APIError struct {
	Provider   string
	StatusCode int
	// Reason is the provider's machine-readable error reason, if it sent one.
	Reason string
	Err    error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// authReasons are error reasons that mean the credentials were rejected even
// though the status code says otherwise. Google APIs answer an invalid key
// with 400 API_KEY_INVALID.
var authReasons = map[string]bool{
	"API_KEY_INVALID": true,
	"UNAUTHENTICATED": true,
}

// IsAuth reports whether the provider rejected the credentials.
func (e *APIError) IsAuth() bool {
	if authReasons[e.Reason] {
		return true
	}
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsAuthError reports whether err carries an APIError for rejected
// credentials.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAuth()
}

// AsCostEstimator returns the provider as a CostEstimator if it implements the interface.
func AsCostEstimator(p Provider) (CostEstimator, bool) {
	ce, ok := p.(CostEstimator)
	return ce, ok
}
