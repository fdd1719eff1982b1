package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/snaptext/snaptext/internal/clientconfig"
	"github.com/snaptext/snaptext/internal/export"
	"github.com/snaptext/snaptext/internal/uploader"
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <image-file>",
		Short: "Upload an image and print or save the extracted text",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}

	cmd.Flags().StringP("format", "f", "", "Export format: text, json, csv, or excel")
	cmd.Flags().StringP("output", "o", "", "Write the export to this directory instead of stdout")
	cmd.Flags().StringP("server", "s", "", "Extraction server base URL")
	cmd.Flags().Bool("quiet", false, "Suppress progress stages")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cf, err := clientconfig.Load(configPath)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("server"); v != "" {
		cf.ServerURL = v
	}
	if v, _ := cmd.Flags().GetString("format"); v != "" {
		cf.DefaultFormat = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cf.OutputDir = v
	}
	quiet, _ := cmd.Flags().GetBool("quiet")

	format, err := export.ParseFormat(cf.DefaultFormat)
	if err != nil {
		return err
	}

	client := uploader.NewClient(cf.ServerURL)
	client.MaxAttempts = cf.MaxAttempts
	client.AttemptTimeout = time.Duration(cf.TimeoutSeconds) * time.Second

	m := uploader.NewMachine(client, nil)
	if quiet {
		m.SetStepDelay(0)
	} else {
		m.OnStep(func(i int, s uploader.Step) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/4] %s: %s\n", i+1, s.Label, s.Description)
		})
	}

	if err := m.SelectFile(args[0]); err != nil {
		return fmt.Errorf("%s", m.ErrorMessage())
	}
	if err := m.Process(cmd.Context()); err != nil {
		return fmt.Errorf("%s", m.ErrorMessage())
	}

	// The excel export is bytes for a file, not for a terminal.
	if cmd.Flags().Changed("output") || format == export.FormatExcel {
		path, err := m.Download(cf.OutputDir, format)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	data, err := m.Export(format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
