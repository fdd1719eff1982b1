package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snaptext/snaptext/internal/export"
)

// NewFormatsCmd creates the formats command.
func NewFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the available export formats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range export.Formats() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s  .%-4s  %s\n", f, f.Extension(), f.ContentType())
			}
			return nil
		},
	}
}
