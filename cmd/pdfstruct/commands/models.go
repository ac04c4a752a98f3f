package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pdfstruct/pkg/llm"
)

func newModelsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Show providers, default models and configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Providers:")
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  PROVIDER\tDEFAULT MODEL\tCREDENTIALS")
			for _, name := range llm.AvailableProviders() {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", name, llm.GetDefaultModel(name), credentialStatus(name, cfg.APIKey(name) != ""))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Recommended models:")
			tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, r := range llm.Recommendations {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.UseCase, r.Model, r.Note)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			sel := cfg.SelectProvider()
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Current selection: %s (%s)\n", sel.Provider, sel.Model)
			return nil
		},
	}
}

func credentialStatus(provider string, set bool) string {
	switch {
	case !llm.RequiresAPIKey(provider):
		return "not required"
	case set:
		return "set"
	default:
		vars := append(append([]string{}, llm.KeyEnvVars[provider]...), llm.FallbackKeyEnvVar)
		return "missing (" + strings.Join(vars, " or ") + ")"
	}
}
