package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// buildToolsCmd lists every registered Tool Descriptor name — a minimal
// end-to-end check runnable without an LLM or Jira credential on hand.
func buildToolsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List every tool registered in the Tool Registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			names := a.registry.List()
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
	return cmd
}
