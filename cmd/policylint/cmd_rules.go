package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codewithboateng/policylint/internal/rulesdsl"
)

func newRulesCmd(g *globals) *cobra.Command {
	var (
		packs   []string
		dumpYML bool
	)
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rules the configured packs define",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dumpYML {
				_, err := cmd.OutOrStdout().Write(rulesdsl.DefaultYAML())
				return err
			}
			cfg, _, err := g.setup()
			if err != nil {
				return err
			}
			if len(packs) > 0 {
				cfg.Rules.Packs = packs
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSEVERITY\tCATEGORY\tTARGET\tPACK\tENABLED")
			for _, r := range reg.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", r.ID, r.Severity, r.Category, r.Target, r.Pack, reg.Enabled(r.ID))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&packs, "pack", nil, "policy pack YAML file (repeatable)")
	cmd.Flags().BoolVar(&dumpYML, "dump-default", false, "print the embedded default pack")
	return cmd
}
