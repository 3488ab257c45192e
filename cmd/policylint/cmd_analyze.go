package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codewithboateng/policylint/internal/engine"
	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/parser"
	"github.com/codewithboateng/policylint/internal/reporting"
	"github.com/codewithboateng/policylint/internal/rules"
)

func newAnalyzeCmd(g *globals) *cobra.Command {
	var (
		paths      []string
		packs      []string
		workers    int
		permissive bool
		format     string
		noStore    bool
		showSupp   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [--path dir]...",
		Short: "Evaluate every unit document under the given paths",
		Long: `Evaluate unit documents (*.unit.json, *.unit.yaml) produced by a parser
against the configured policy packs.

The report is printed to stdout and also stored in the run database
together with JSON and HTML files in the output directory.

Exit status is 0 when no active error finding exists, 1 when one does,
2 on configuration errors and 130 when interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return fatal(format, err)
			}
			if len(paths) == 0 {
				paths = cfg.Analysis.Sources
			}
			if len(packs) > 0 {
				cfg.Rules.Packs = packs
			}
			if cmd.Flags().Changed("permissive") {
				cfg.Rules.Permissive = permissive
			}
			if workers > 0 {
				cfg.Analysis.Workers = workers
			}
			if len(paths) == 0 {
				return &exitError{code: 2, err: errors.New("analyze: --path (or analysis.sources in config) is required")}
			}

			reg, err := buildRegistry(cfg)
			if err != nil {
				return fatal(format, err)
			}

			var waivers []ir.Waiver
			db, err := openDB(cfg)
			if err != nil {
				if !noStore {
					return &exitError{code: 2, err: err}
				}
				logger.Warn("run database unavailable; waivers not applied", "err", err)
			} else {
				defer db.Close()
				if waivers, err = db.ListWaivers(true); err != nil {
					return &exitError{code: 2, err: err}
				}
			}

			var units []*ir.SourceUnit
			var rejected []*ir.ModelError
			for _, p := range paths {
				res, diags := parser.Parse(p)
				for _, w := range diags.Warnings {
					logger.Warn("parse warning", "path", p, "warning", w)
				}
				units = append(units, res.Units...)
				rejected = append(rejected, res.Rejected...)
			}

			runner, err := engine.NewRunner(reg,
				engine.WithWorkers(cfg.Analysis.Workers),
				engine.WithLogger(logger),
				engine.WithWaivers(waivers),
			)
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			run := ir.Run{
				ID:        uuid.NewString(),
				StartedAt: time.Now().UTC(),
				Source:    strings.Join(paths, ","),
				IRVersion: ir.Version,
				Context:   runContext(reg),
			}
			rep, runErr := runner.Run(ctx, units, rejected...)
			run.Report = rep
			if runErr != nil && errors.Is(runErr, context.Canceled) {
				_ = printReport(format, rep, showSupp)
				return &exitError{code: 130, err: fmt.Errorf("analysis interrupted after %d unit(s)", rep.Summary.Units)}
			}

			if !noStore && db != nil {
				if err := db.SaveRun(&run); err != nil {
					return &exitError{code: 2, err: fmt.Errorf("save run: %w", err)}
				}
				jsonPath, err := reporting.WriteJSON(run.ID, cfg.Reporting.OutDir, &run)
				if err != nil {
					return &exitError{code: 2, err: err}
				}
				htmlPath, err := reporting.WriteHTML(run.ID, cfg.Reporting.OutDir, &run)
				if err != nil {
					return &exitError{code: 2, err: err}
				}
				logger.Info("run stored", "run", run.ID, "json", jsonPath, "html", htmlPath, "db", filepath.Clean(cfg.Database.DSN))
			}

			if err := printReport(format, rep, showSupp); err != nil {
				return &exitError{code: 2, err: err}
			}
			if rep.Failed() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&paths, "path", "p", nil, "directory or file of unit documents (repeatable)")
	cmd.Flags().StringSliceVar(&packs, "pack", nil, "policy pack YAML file (repeatable; default: embedded pack)")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "units evaluated in parallel (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&permissive, "permissive", false, "allow annotations missing from the policy table")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "stdout format (text, json, none)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not persist the run or write report files")
	cmd.Flags().BoolVar(&showSupp, "show-suppressed", false, "list suppressed findings in text output")
	return cmd
}

func runContext(reg *rules.Registry) ir.Context {
	s := reg.Settings()
	c := ir.Context{Packs: reg.Packs(), Permissive: s.Permissive}
	for id := range s.Disabled {
		c.DisabledRules = append(c.DisabledRules, id)
	}
	sort.Strings(c.DisabledRules)
	return c
}

func printReport(format string, rep ir.Report, showSuppressed bool) error {
	switch format {
	case "json":
		return reporting.EncodeJSON(os.Stdout, rep)
	case "text", "":
		return reporting.WriteText(os.Stdout, rep, showSuppressed)
	case "none":
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

// fatal prints the one-finding report for a configuration failure.
func fatal(format string, err error) error {
	_ = printReport(format, reporting.FatalReport(err), false)
	return &exitError{code: 2}
}
