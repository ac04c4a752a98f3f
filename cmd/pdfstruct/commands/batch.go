package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pdfstruct/internal/logger"
	"github.com/jmylchreest/pdfstruct/internal/output"
	"github.com/jmylchreest/pdfstruct/pkg/batch"
	"github.com/jmylchreest/pdfstruct/pkg/extraction"
)

func newBatchCmd(g *globalOptions) *cobra.Command {
	var (
		f         runFlags
		outputDir string
		maxFiles  int
	)

	cmd := &cobra.Command{
		Use:   "batch <folder>",
		Short: "Extract structured data from every PDF in a folder",
		Long: `Run one template over every .pdf file directly inside a folder.

Files are processed one at a time in name order. A file that cannot be read
or extracted is recorded as failed and the batch carries on; failed files are
listed at the end and do not change the exit status.

With --output-dir each document is also written to its own file, alongside
a batch_summary.json describing the run.

Examples:
  pdfstruct batch ./invoices -t invoice -o invoices.csv
  pdfstruct batch ./receipts -t receipt --output-dir out -f json
  pdfstruct batch ./papers -t research_paper --max-files 10 -o papers.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, &f, outputDir, maxFiles, args[0])
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "write one output file per document plus batch_summary.json here")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "process at most this many files (0 = all)")
	return cmd
}

func runBatch(cmd *cobra.Command, g *globalOptions, f *runFlags, outputDir string, maxFiles int, folder string) error {
	ctx := cmd.Context()

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	f.apply(cmd, cfg)
	if cmd.Flags().Changed("output-dir") {
		cfg.Output.Directory = outputDir
	}
	if cmd.Flags().Changed("max-files") {
		cfg.Processing.MaxFiles = maxFiles
	}

	format, err := resolveFormat(f.format, f.output, cfg)
	if err != nil {
		return err
	}
	if !skipsCombined(cfg.Output.Directory, f.output) {
		if err := checkDestination(f.output, format); err != nil {
			return err
		}
	}

	tmpl, err := resolveTemplate(cfg)
	if err != nil {
		return err
	}

	files, err := batch.FindPDFs(folder)
	if err != nil {
		return err
	}

	results := []extraction.DocumentResult{}
	var writeErr error

	if len(files) == 0 {
		logger.Warn("no PDF files found", "folder", folder)
	} else {
		client, sel, err := buildClient(cfg)
		if err != nil {
			return err
		}

		logger.Info("starting batch",
			"folder", folder,
			"files", len(files),
			"template", tmpl.Name,
			"provider", sel.Provider,
			"model", sel.Model)

		proc := &batch.Processor{
			Text:     newTextExtractor(cfg),
			Client:   client,
			MaxFiles: cfg.Processing.MaxFiles,
			OnResult: func(r extraction.DocumentResult, index, total int) {
				if r.Succeeded() {
					logger.Info("processed", "file", filepath.Base(r.File), "progress", progress(index, total), "extractions", len(r.Extractions))
				} else {
					logger.Warn("failed", "file", filepath.Base(r.File), "progress", progress(index, total), "kind", r.ErrorKind)
				}
				if cfg.Output.Directory == "" || !r.Succeeded() {
					return
				}
				path := filepath.Join(cfg.Output.Directory, batch.OutputName(r.File, format.Extension()))
				if err := writeResults(cmd, path, format, []extraction.DocumentResult{r}, tmpl.Name+": "+r.File); err != nil {
					logger.Error("writing document output", "path", path, logger.Err(err))
					writeErr = errors.Join(writeErr, err)
				}
			},
		}

		var runErr error
		results, runErr = proc.RunBatch(ctx, folder, tmpl)
		if runErr != nil {
			// Keep what finished before the interruption.
			logger.WarnContext(ctx, "batch interrupted", "processed", len(results), logger.Err(runErr))
			if err := writeCombined(cmd, cfg.Output.Directory, f.output, format, results, tmpl.Name); err != nil {
				logger.Error("writing partial results", logger.Err(err))
			}
			return runErr
		}
	}

	if err := writeCombined(cmd, cfg.Output.Directory, f.output, format, results, tmpl.Name); err != nil {
		return err
	}

	summary := batch.Summarize(results)
	if cfg.Output.Directory != "" {
		path, err := summary.WriteFile(cfg.Output.Directory)
		if err != nil {
			return err
		}
		logger.Info("wrote batch summary", "path", path, "run_id", summary.RunID)
	}

	logInfo(cmd, "Processed %d files: %d succeeded, %d failed, %d extractions",
		summary.Total, summary.Succeeded, summary.Failed, summary.Extractions)
	if failed := summary.FailedFiles(); len(failed) > 0 {
		logInfo(cmd, "Failed files:")
		for _, file := range failed {
			logInfo(cmd, "  %s (%s): %s", file.File, file.ErrorKind, file.Error)
		}
	}
	return writeErr
}

// writeCombined writes every result to -o, or to stdout unless per-file
// outputs were requested without -o.
func writeCombined(cmd *cobra.Command, outputDir, outPath string, format output.Format, results []extraction.DocumentResult, title string) error {
	if skipsCombined(outputDir, outPath) {
		return nil
	}
	return writeResults(cmd, outPath, format, results, title+" batch")
}

// skipsCombined reports whether per-file outputs replace the combined stdout
// output.
func skipsCombined(outputDir, outPath string) bool {
	return outPath == "" && outputDir != ""
}

func progress(index, total int) string {
	return fmt.Sprintf("%d/%d", index, total)
}
