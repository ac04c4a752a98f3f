package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pdfstruct/internal/logger"
	"github.com/jmylchreest/pdfstruct/internal/output"
	"github.com/jmylchreest/pdfstruct/pkg/batch"
	"github.com/jmylchreest/pdfstruct/pkg/extraction"
)

func newExtractCmd(g *globalOptions) *cobra.Command {
	var (
		f         runFlags
		visualize bool
	)

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract structured data from a single PDF",
		Long: `Extract structured data from one PDF using a template.

The document text is read locally, split into chunks and sent to the LLM
together with the template's prompt and examples. Each extraction is located
in the text where possible and given a confidence score.

Examples:
  pdfstruct extract invoice.pdf -t invoice
  pdfstruct extract invoice.pdf -t invoice -o invoice.csv
  pdfstruct extract paper.pdf -t research_paper --passes 2 -o paper.json --visualize`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, g, &f, visualize, args[0])
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&visualize, "visualize", false, "also write an HTML report next to the output")
	return cmd
}

func runExtract(cmd *cobra.Command, g *globalOptions, f *runFlags, visualize bool, path string) error {
	ctx := cmd.Context()

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	f.apply(cmd, cfg)
	if cmd.Flags().Changed("visualize") {
		cfg.Output.Visualize = visualize
	}

	format, err := resolveFormat(f.format, f.output, cfg)
	if err != nil {
		return err
	}
	if err := checkDestination(f.output, format); err != nil {
		return err
	}

	tmpl, err := resolveTemplate(cfg)
	if err != nil {
		return err
	}

	client, sel, err := buildClient(cfg)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "extracting",
		"file", path,
		"template", tmpl.Name,
		"provider", sel.Provider,
		"model", sel.Model,
		"passes", tmpl.Settings.Passes())

	proc := &batch.Processor{Text: newTextExtractor(cfg), Client: client}
	result := proc.ProcessFile(ctx, path, tmpl)
	if !result.Succeeded() {
		logger.Error("extraction failed", "file", path, "kind", result.ErrorKind)
		return result.Err()
	}

	if err := writeResults(cmd, f.output, format, []extraction.DocumentResult{result}, tmpl.Name+": "+path); err != nil {
		return err
	}

	if cfg.Output.Visualize && format != output.FormatHTML {
		report := visualizationPath(f.output, path)
		if err := writeResults(cmd, report, output.FormatHTML, []extraction.DocumentResult{result}, tmpl.Name+": "+path); err != nil {
			return err
		}
		logger.Info("wrote report", "path", report)
	}

	m := result.Metadata
	logInfo(cmd, "%s", extraction.Summarize(result.Extractions))
	logInfo(cmd, "%s pages, %s characters, %s tokens in / %s out, ~$%.4f, %s",
		humanize.Comma(int64(m.Pages)),
		humanize.Comma(int64(m.TextLength)),
		humanize.Comma(int64(m.InputTokens)),
		humanize.Comma(int64(m.OutputTokens)),
		m.EstimatedCost,
		fmt.Sprintf("%.1fs", float64(m.DurationMS)/1000))
	return nil
}
