package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for snapctl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapctl",
		Short: "Extract text from images through a snaptext server",
		Long: `snapctl uploads an image to a snaptext extraction server, which relays it
to a hosted vision model, and renders the extracted text as plain text,
JSON, CSV, or a CSV-content .xlsx download.

Settings are read from a .snaptext YAML file (current directory, then
home directory) and can be overridden per invocation with flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringP("config", "c", "", "Path to a .snaptext config file")

	// Add subcommands
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewFormatsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
