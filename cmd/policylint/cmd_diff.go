package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codewithboateng/policylint/internal/reporting"
)

func newDiffCmd(g *globals) *cobra.Command {
	var (
		base, head string
		write      bool
	)
	cmd := &cobra.Command{
		Use:   "diff --base <run-id> --head <run-id>",
		Short: "Compare the findings of two stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if base == "" || head == "" {
				return fmt.Errorf("diff: --base and --head are required")
			}
			cfg, _, err := g.setup()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			b, err := db.LoadRun(base)
			if err != nil {
				return fmt.Errorf("load base run: %w", err)
			}
			h, err := db.LoadRun(head)
			if err != nil {
				return fmt.Errorf("load head run: %w", err)
			}

			if write {
				path, err := reporting.WriteDiffJSON(cfg.Reporting.OutDir, &b, &h)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Diff OK\n  File: %s\n", path)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reporting.Diff(&b, &h))
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "base run id")
	cmd.Flags().StringVar(&head, "head", "", "head run id")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the diff to the output directory instead of stdout")
	return cmd
}
