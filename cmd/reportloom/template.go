package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skylarklabs/reportloom/internal/template"
)

// buildTemplateCmd drives the Placeholder Parser over a template file,
// substituting {{prompt:N}} markers with Execution Cache artifacts.
func buildTemplateCmd(configPath *string) *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Expand {{prompt:N}} placeholders in a template file against cached executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if filePath == "" {
				return fmt.Errorf("--file is required")
			}
			raw, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}

			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			parser := template.NewParser(a.store)
			result, err := parser.Parse(cmd.Context(), string(raw), nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.HTML)
			if len(result.Missing) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "missing executions for prompt ids: %v\n", result.Missing)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "path to the template file (required)")
	return cmd
}
