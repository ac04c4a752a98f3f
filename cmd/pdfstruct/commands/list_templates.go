package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pdfstruct/pkg/template"
)

func newListTemplatesCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list-templates",
		Aliases: []string{"templates"},
		Short:   "List the available extraction templates",
		Long: `List the built-in templates, then any custom templates found in the
configured template directories (template.dirs, default ./templates).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			entries := template.NewRegistry(cfg.Template.Dirs...).ListAll()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSOURCE\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Source, e.Description)
			}
			return tw.Flush()
		},
	}
}
