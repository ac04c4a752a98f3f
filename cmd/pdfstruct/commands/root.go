// Package commands implements the CLI commands for pdfstruct.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pdfstruct/internal/config"
	"github.com/jmylchreest/pdfstruct/internal/logger"
	"github.com/jmylchreest/pdfstruct/internal/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	envFile    string
	verbose    bool
	quiet      bool
	logJSON    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "pdfstruct",
		Short: "Extract structured data from PDF documents using LLMs",
		Long: `pdfstruct reads the text of PDF documents and asks an LLM to pull out
structured fields, steered by a template: a prompt plus a few worked examples
for a document type such as an invoice, resume or bank statement.

Results are written as JSON, JSONL, YAML, CSV, Excel or an HTML report.

Examples:
  # Extract invoice fields from one PDF
  pdfstruct extract invoice.pdf -t invoice

  # Process a folder of receipts into a spreadsheet
  pdfstruct batch ./receipts -t receipt -o receipts.xlsx

  # Use your own template file
  pdfstruct extract lease.pdf --custom-template lease.yaml

  # Run against a local Ollama model
  pdfstruct extract resume.pdf -t resume -p ollama -m llama3.2`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.Options{
				Debug:  g.verbose,
				Quiet:  g.quiet,
				JSON:   g.logJSON,
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configFile, "config", "", "config file (default ./pdfstruct.yaml, ./config.yaml or $HOME/.pdfstruct.yaml)")
	flags.StringVar(&g.envFile, "env-file", config.DefaultEnvFile, "file of KEY=value pairs loaded into the environment")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVarP(&g.quiet, "quiet", "q", false, "only log errors")
	flags.BoolVar(&g.logJSON, "log-json", false, "log as JSON")

	cmd.AddCommand(
		newExtractCmd(g),
		newBatchCmd(g),
		newListTemplatesCmd(g),
		newModelsCmd(g),
		newInfoCmd(g),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command. Interrupts cancel the running extraction.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig reads the config file, .env and environment.
func (g *globalOptions) loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		ConfigFile: g.configFile,
		EnvFile:    g.envFile,
	})
}

// logInfo prints a human-readable line to stderr unless quiet.
func logInfo(cmd *cobra.Command, format string, args ...any) {
	if logger.Enabled(slog.LevelInfo) {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}
