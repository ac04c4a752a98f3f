// Package config loads pdfstruct settings from a YAML file, the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmylchreest/pdfstruct/internal/logger"
	"github.com/jmylchreest/pdfstruct/pkg/llm"
)

// EnvPrefix prefixes every environment variable that maps onto a config key,
// e.g. PDFSTRUCT_MODEL_NAME for model.name.
const EnvPrefix = "PDFSTRUCT"

// DefaultEnvFile is loaded when present; a missing default file is not an error.
const DefaultEnvFile = ".env"

// DefaultTemplateDir is searched for custom templates unless template.dirs
// is set.
const DefaultTemplateDir = "templates"

// ErrInvalidConfig is returned when the loaded settings fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all pdfstruct settings.
type Config struct {
	Template   TemplateConfig   `mapstructure:"template"`
	Model      ModelConfig      `mapstructure:"model"`
	Output     OutputConfig     `mapstructure:"output"`
	Processing ProcessingConfig `mapstructure:"processing"`
	API        APIConfig        `mapstructure:"api"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// TemplateConfig selects the extraction template.
type TemplateConfig struct {
	Name               string   `mapstructure:"name"`
	CustomTemplatePath string   `mapstructure:"custom_template_path"`
	Dirs               []string `mapstructure:"dirs"`
}

// ModelConfig selects and tunes the LLM provider.
type ModelConfig struct {
	Provider    string        `mapstructure:"provider" validate:"omitempty,oneof=gemini openai anthropic ollama"`
	Name        string        `mapstructure:"name"`
	Passes      int           `mapstructure:"passes" validate:"gte=0,lte=3"`
	Temperature float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gte=0"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
}

// OutputConfig controls result formatting.
type OutputConfig struct {
	Format    string `mapstructure:"format" validate:"omitempty,oneof=json jsonl ndjson yaml yml csv xlsx excel html htm"`
	Directory string `mapstructure:"directory"`
	Visualize bool   `mapstructure:"visualize"`
}

// ProcessingConfig controls how PDFs are read and batched.
type ProcessingConfig struct {
	MaxFiles      int    `mapstructure:"max_files" validate:"gte=0"`
	PdftotextPath string `mapstructure:"pdftotext_path"`
	NoFallback    bool   `mapstructure:"no_fallback"`
}

// APIConfig holds API keys. Keys from the environment take precedence over
// keys in the config file.
type APIConfig struct {
	GoogleAPIKey      string `mapstructure:"google_api_key"`
	OpenAIAPIKey      string `mapstructure:"openai_api_key"`
	AnthropicAPIKey   string `mapstructure:"anthropic_api_key"`
	LangextractAPIKey string `mapstructure:"langextract_api_key"`
}

// Options tell Load where to look.
type Options struct {
	// ConfigFile is an explicit config path. It must exist when set.
	ConfigFile string

	// EnvFile is a .env file to load before reading the environment. Values
	// already set in the environment are not overridden.
	EnvFile string
}

// SearchPaths returns the config files tried, in order, when no explicit
// file is given.
func SearchPaths() []string {
	paths := []string{"pdfstruct.yaml", "config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".pdfstruct.yaml"))
	}
	return paths
}

// Load reads the configuration.
func Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	bindAPIKeys(v)

	file := opts.ConfigFile
	if file == "" {
		for _, candidate := range SearchPaths() {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				file = candidate
				break
			}
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
		logger.Debug("loaded config file", "path", file)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = file
	cfg.Model.Provider = strings.ToLower(strings.TrimSpace(cfg.Model.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("template.name", "")
	v.SetDefault("template.custom_template_path", "")
	v.SetDefault("template.dirs", []string{DefaultTemplateDir})

	v.SetDefault("model.provider", "")
	v.SetDefault("model.name", "")
	v.SetDefault("model.passes", 0)
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("model.max_tokens", 4096)
	v.SetDefault("model.max_retries", 2)
	v.SetDefault("model.timeout", "120s")
	v.SetDefault("model.base_url", "")

	v.SetDefault("output.format", "")
	v.SetDefault("output.directory", "")
	v.SetDefault("output.visualize", false)

	v.SetDefault("processing.max_files", 0)
	v.SetDefault("processing.pdftotext_path", "")
	v.SetDefault("processing.no_fallback", false)

	v.SetDefault("api.google_api_key", "")
	v.SetDefault("api.openai_api_key", "")
	v.SetDefault("api.anthropic_api_key", "")
	v.SetDefault("api.langextract_api_key", "")
}

// bindAPIKeys maps the well-known provider variables onto the api section.
func bindAPIKeys(v *viper.Viper) {
	keys := map[string]string{
		"gemini":    "api.google_api_key",
		"openai":    "api.openai_api_key",
		"anthropic": "api.anthropic_api_key",
	}
	for provider, key := range keys {
		envs := append([]string{envName(key)}, llm.KeyEnvVars[provider]...)
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	_ = v.BindEnv("api.langextract_api_key", envName("api.langextract_api_key"), llm.FallbackKeyEnvVar)
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func loadEnvFile(path string) error {
	explicit := path != "" && path != DefaultEnvFile
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return fmt.Errorf("reading env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	logger.Debug("loaded env file", "path", path)
	return nil
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fieldPath(fe.Namespace()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// fieldPath turns "Config.Model.Passes" into "model.passes".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	return strings.ToLower(ns)
}

// APIKey returns the key for provider, falling back to the catch-all key.
// Ollama needs no key and always gets "".
func (c *Config) APIKey(provider string) string {
	var key string
	switch provider {
	case "gemini":
		key = c.API.GoogleAPIKey
	case "openai":
		key = c.API.OpenAIAPIKey
	case "anthropic":
		key = c.API.AnthropicAPIKey
	case "ollama":
		return ""
	}
	if key == "" {
		key = c.API.LangextractAPIKey
	}
	return key
}

// Selection is the provider, model and key chosen for a run.
type Selection struct {
	Provider string
	Model    string
	APIKey   string
}

// SelectProvider picks the provider for a run. An explicit provider wins;
// otherwise the model name decides; otherwise the first provider in
// llm.DetectionOrder with a provider-specific key is used, defaulting to
// gemini. The model defaults to the provider's default model.
func (c *Config) SelectProvider() Selection {
	provider := c.Model.Provider
	model := c.Model.Name

	switch {
	case provider != "":
	case model != "":
		provider = llm.ProviderForModel(model)
	default:
		provider = llm.DetectionOrder[0]
		for _, p := range llm.DetectionOrder {
			if c.ownKey(p) != "" {
				provider = p
				break
			}
		}
	}

	if model == "" {
		model = llm.GetDefaultModel(provider)
	}
	return Selection{Provider: provider, Model: model, APIKey: c.APIKey(provider)}
}

func (c *Config) ownKey(provider string) string {
	switch provider {
	case "gemini":
		return c.API.GoogleAPIKey
	case "openai":
		return c.API.OpenAIAPIKey
	case "anthropic":
		return c.API.AnthropicAPIKey
	}
	return ""
}
