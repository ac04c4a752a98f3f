package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/pdfstruct/internal/logger"
	"github.com/jmylchreest/pdfstruct/pkg/llm"
	"github.com/jmylchreest/pdfstruct/pkg/template"
)

// Client runs templates against document text using an LLM provider.
type Client struct {
	provider llm.Provider
	config   Config
}

// Config holds client settings.
type Config struct {
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Temperature: 0.0,
		MaxTokens:   4096,
	}
}

// Option configures the client.
type Option func(*Config)

// WithTemperature sets the LLM temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the maximum tokens for responses.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxTokens = n
		}
	}
}

// New creates a Client. A nil provider yields a client whose Extract always
// fails with ErrAuthentication, which is how a missing credential surfaces
// per document.
func New(provider llm.Provider, opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		provider: provider,
		config:   cfg,
	}
}

// Provider returns the underlying provider.
func (c *Client) Provider() llm.Provider {
	return c.provider
}

// Extract runs tmpl over text. The text is split into chunks of at most the
// template's character buffer; each chunk is sent once per extraction pass,
// and later passes only add extractions not already found. Chunks and passes
// run sequentially and a failure of any call fails the whole document.
func (c *Client) Extract(ctx context.Context, text string, tmpl template.Template) (*Output, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("%w: no API key configured", ErrAuthentication)
	}

	start := time.Now()
	chunks := SplitText(text, tmpl.Settings.CharBuffer())
	passes := tmpl.Settings.Passes()

	out := &Output{
		Extractions: []Extraction{},
		Provider:    c.provider.Name(),
		Model:       c.provider.Model(),
		Chunks:      len(chunks),
		Passes:      passes,
	}

	logger.DebugContext(ctx, "extraction starting",
		"template", tmpl.Name,
		"provider", out.Provider,
		"model", out.Model,
		"text_size", len(text),
		"chunks", len(chunks),
		"passes", passes)

	seen := make(map[string]bool)
	for pass := 1; pass <= passes; pass++ {
		added := 0
		for i, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			found, resp, err := c.extractChunk(ctx, tmpl, chunk)
			if resp != nil {
				out.Usage = out.Usage.Add(resp.Usage)
				out.Cost += resp.Cost
				if resp.Model != "" {
					out.Model = resp.Model
				}
			}
			if err != nil {
				logger.DebugContext(ctx, "extraction chunk failed", "pass", pass, "chunk", i+1, "error", err)
				return nil, err
			}

			for _, e := range found {
				key := dedupKey(e.Class, e.Text)
				if pass > 1 && seen[key] {
					continue
				}
				seen[key] = true
				out.Extractions = append(out.Extractions, e)
				added++
			}
		}
		logger.DebugContext(ctx, "extraction pass complete", "pass", pass, "added", added)
	}

	out.Duration = time.Since(start)
	logger.DebugContext(ctx, "extraction complete",
		"extractions", len(out.Extractions),
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
		"duration", out.Duration)
	return out, nil
}

// extractChunk performs one LLM call for one chunk and grounds the result.
func (c *Client) extractChunk(ctx context.Context, tmpl template.Template, chunk Chunk) ([]Extraction, *llm.Response, error) {
	resp, err := c.provider.Execute(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt()},
			{Role: llm.RoleUser, Content: BuildPrompt(tmpl, chunk.Text)},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		JSONSchema:  responseSchema,
	})
	if err != nil {
		return nil, nil, classify(ctx, err)
	}

	items, err := parseResponse(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("%w: %v", ErrService, err)
	}

	extractions := make([]Extraction, 0, len(items))
	for _, it := range items {
		span, confidence := align(it.Text, chunk)
		if it.Confidence != nil {
			confidence = clampConfidence(*it.Confidence)
		}
		extractions = append(extractions, Extraction{
			Class:      it.Class,
			Text:       it.Text,
			Attributes: it.Attributes,
			Confidence: confidence,
			Span:       span,
		})
	}
	return extractions, resp, nil
}

// classify maps a provider error onto the package's error kinds.
func classify(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, llm.ErrMissingAPIKey), llm.IsAuthError(err):
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	default:
		return fmt.Errorf("%w: %w", ErrService, err)
	}
}
