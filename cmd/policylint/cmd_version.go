package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codewithboateng/policylint/internal/ir"
)

var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "policylint %s IR: %s\n", version, ir.Version)
		},
	}
}
