package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/reporting"
)

func newReportCmd(g *globals) *cobra.Command {
	var (
		runID    string
		format   string
		showSupp bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render a stored run (default: the latest)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			var run ir.Run
			if runID == "" {
				run, err = db.LatestRun()
			} else {
				run, err = db.LoadRun(runID)
			}
			if err != nil {
				return fmt.Errorf("load run: %w", err)
			}

			switch format {
			case "files":
				jsonPath, err := reporting.WriteJSON(run.ID, cfg.Reporting.OutDir, &run)
				if err != nil {
					return err
				}
				htmlPath, err := reporting.WriteHTML(run.ID, cfg.Reporting.OutDir, &run)
				if err != nil {
					return err
				}
				logger.Info("report written", "run", run.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Report OK\n  Run: %s\n  JSON: %s\n  HTML: %s\n", run.ID, jsonPath, htmlPath)
				return nil
			case "json":
				return reporting.EncodeJSON(cmd.OutOrStdout(), run.Report)
			case "html":
				return reporting.RenderHTML(cmd.OutOrStdout(), &run)
			case "text":
				return reporting.WriteText(cmd.OutOrStdout(), run.Report, showSupp)
			}
			return fmt.Errorf("unknown format %q", format)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id (default: latest)")
	cmd.Flags().StringVarP(&format, "format", "f", "files", "output (files, json, html, text)")
	cmd.Flags().BoolVar(&showSupp, "show-suppressed", false, "list suppressed findings in text output")
	return cmd
}
