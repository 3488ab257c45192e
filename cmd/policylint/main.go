package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitError carries a process exit code out of a RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	var g globals
	rootCmd := &cobra.Command{
		Use:           "policylint",
		Short:         "Coding-standard policy analyzer for parsed source units",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "path to YAML config (optional)")
	rootCmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&g.outDir, "out", "", "output directory for report files")

	rootCmd.AddCommand(newAnalyzeCmd(&g))
	rootCmd.AddCommand(newReportCmd(&g))
	rootCmd.AddCommand(newDiffCmd(&g))
	rootCmd.AddCommand(newRulesCmd(&g))
	rootCmd.AddCommand(newServeCmd(&g))
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				fmt.Fprintln(os.Stderr, "policylint:", ee.err)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "policylint:", err)
		os.Exit(2)
	}
}
