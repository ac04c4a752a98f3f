package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pdfstruct/internal/config"
	"github.com/jmylchreest/pdfstruct/internal/logger"
	"github.com/jmylchreest/pdfstruct/internal/output"
	"github.com/jmylchreest/pdfstruct/pkg/extraction"
	"github.com/jmylchreest/pdfstruct/pkg/llm"
	"github.com/jmylchreest/pdfstruct/pkg/pdftext"
	"github.com/jmylchreest/pdfstruct/pkg/template"
)

// runFlags are the template, model and output flags shared by extract and
// batch. Flags that were set override the config file.
type runFlags struct {
	template       string
	customTemplate string
	provider       string
	model          string
	passes         int
	output         string
	format         string
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.template, "template", "t", "", "built-in or custom template name (see list-templates)")
	flags.StringVar(&f.customTemplate, "custom-template", "", "path to a template file (JSON or YAML)")
	flags.StringVarP(&f.provider, "provider", "p", "", "LLM provider: "+strings.Join(llm.AvailableProviders(), ", ")+" (default: from model or API keys)")
	flags.StringVarP(&f.model, "model", "m", "", "model id (default: the provider's default model)")
	flags.IntVar(&f.passes, "passes", 0, fmt.Sprintf("extraction passes, 1-%d (default: template setting)", template.MaxExtractionPasses))
	flags.StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
	flags.StringVarP(&f.format, "format", "f", "", "output format: json, jsonl, yaml, csv, excel, html (default: from --output extension, else json)")
}

// apply copies the flags that were set onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("template") {
		cfg.Template.Name = f.template
	}
	if changed("custom-template") {
		cfg.Template.CustomTemplatePath = f.customTemplate
	}
	if changed("provider") {
		cfg.Model.Provider = strings.ToLower(strings.TrimSpace(f.provider))
	}
	if changed("model") {
		cfg.Model.Name = f.model
	}
	if changed("passes") {
		cfg.Model.Passes = f.passes
	}
}

// resolveTemplate loads the configured template and applies the pass override.
func resolveTemplate(cfg *config.Config) (template.Template, error) {
	registry := template.NewRegistry(cfg.Template.Dirs...)
	tmpl, err := registry.Resolve(cfg.Template.Name, cfg.Template.CustomTemplatePath)
	if err != nil {
		return template.Template{}, err
	}
	if cfg.Model.Passes > 0 {
		tmpl = tmpl.WithPasses(cfg.Model.Passes)
	}
	logger.Debug("template resolved", "template", tmpl.String(), "passes", tmpl.Settings.Passes())
	return tmpl, nil
}

// buildClient creates the extraction client for the selected provider. A
// provider that needs a key fails here when none is configured.
func buildClient(cfg *config.Config) (*extraction.Client, config.Selection, error) {
	sel := cfg.SelectProvider()
	if !llm.IsRegistered(sel.Provider) {
		return nil, sel, fmt.Errorf("%w: %q (available: %s)", llm.ErrUnknownProvider, sel.Provider, strings.Join(llm.AvailableProviders(), ", "))
	}
	if sel.APIKey == "" && llm.RequiresAPIKey(sel.Provider) {
		return nil, sel, missingKeyError(sel.Provider)
	}

	provider, err := llm.NewProvider(sel.Provider, llm.ProviderConfig{
		APIKey:     sel.APIKey,
		BaseURL:    cfg.Model.BaseURL,
		Model:      sel.Model,
		MaxRetries: cfg.Model.MaxRetries,
		Timeout:    cfg.Model.Timeout,
	})
	if err != nil {
		return nil, sel, err
	}

	client := extraction.New(provider,
		extraction.WithTemperature(cfg.Model.Temperature),
		extraction.WithMaxTokens(cfg.Model.MaxTokens),
	)
	logger.Debug("provider ready", "provider", sel.Provider, "model", sel.Model)
	return client, sel, nil
}

func missingKeyError(provider string) error {
	vars := append(append([]string{}, llm.KeyEnvVars[provider]...), llm.FallbackKeyEnvVar)
	return fmt.Errorf("%w: %w for %s (set %s, or use --provider ollama)",
		extraction.ErrAuthentication, llm.ErrMissingAPIKey, provider, strings.Join(vars, " or "))
}

// newTextExtractor creates the PDF text extractor configured by cfg.
func newTextExtractor(cfg *config.Config) *pdftext.PDFExtractor {
	var opts []pdftext.Option
	if cfg.Processing.NoFallback {
		opts = append(opts, pdftext.WithoutFallback())
	}
	if cfg.Processing.PdftotextPath != "" {
		opts = append(opts, pdftext.WithPdftotextPath(cfg.Processing.PdftotextPath))
	}
	return pdftext.New(opts...)
}

// resolveFormat picks the output format: --format, then the output file
// extension, then the config file, then JSON.
func resolveFormat(flag, outPath string, cfg *config.Config) (output.Format, error) {
	if flag != "" {
		return output.ParseFormat(flag)
	}
	if f, ok := output.FormatFromPath(outPath); ok {
		return f, nil
	}
	if cfg.Output.Format != "" {
		return output.ParseFormat(cfg.Output.Format)
	}
	return output.FormatJSON, nil
}

func isStdout(path string) bool {
	return path == "" || path == "-"
}

// checkDestination rejects binary formats bound for stdout. Commands call it
// before any extraction runs.
func checkDestination(path string, format output.Format) error {
	if isStdout(path) && format.Binary() {
		return fmt.Errorf("%s output cannot be written to stdout; use --output", format)
	}
	return nil
}

// writeResults renders results to path, or to stdout when path is "" or "-".
func writeResults(cmd *cobra.Command, path string, format output.Format, results []extraction.DocumentResult, title string) error {
	if err := checkDestination(path, format); err != nil {
		return err
	}
	toStdout := isStdout(path)

	var w io.Writer = cmd.OutOrStdout()
	if !toStdout {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
		}
		f, err := os.Create(path) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	writer, err := output.NewWriter(w, format, output.WithTitle(title))
	if err != nil {
		return err
	}
	if err := writer.WriteAll(results); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("writing %s output: %w", format, err)
	}
	if !toStdout {
		logger.Debug("wrote output", "path", path, "format", format, "documents", len(results))
	}
	return nil
}

// visualizationPath names the HTML report written next to an output file.
func visualizationPath(outPath, pdfPath string) string {
	if isStdout(outPath) {
		base := filepath.Base(pdfPath)
		return strings.TrimSuffix(base, filepath.Ext(base)) + "_report.html"
	}
	return strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_report.html"
}
