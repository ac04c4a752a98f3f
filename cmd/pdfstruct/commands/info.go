package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pdfstruct/pkg/pdftext"
	"github.com/jmylchreest/pdfstruct/pkg/template"
)

func newInfoCmd(g *globalOptions) *cobra.Command {
	var (
		sampleSize int
		passes     int
	)

	cmd := &cobra.Command{
		Use:   "info <pdf>",
		Short: "Show what pdfstruct reads from a PDF without calling an LLM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("passes") && cfg.Model.Passes > 0 {
				passes = cfg.Model.Passes
			}
			passes = template.Settings{ExtractionPasses: passes}.Passes()

			doc, err := newTextExtractor(cfg).Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:        %s\n", doc.Path)
			fmt.Fprintf(out, "Pages:       %s\n", humanize.Comma(int64(doc.PageCount)))
			fmt.Fprintf(out, "Characters:  %s\n", humanize.Comma(int64(len(doc.Text))))
			fmt.Fprintf(out, "Method:      %s\n", doc.Method)
			fmt.Fprintf(out, "Estimate:    %s (%d passes)\n",
				pdftext.FormatEstimate(pdftext.EstimateProcessingTime(len(doc.Text), passes)), passes)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sample:")
			fmt.Fprintln(out, pdftext.Sample(doc.Text, sampleSize))
			return nil
		},
	}

	cmd.Flags().IntVar(&sampleSize, "sample-size", 500, "characters of text to show")
	cmd.Flags().IntVar(&passes, "passes", 1, "extraction passes to assume for the estimate")
	return cmd
}
