package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect the report knowledge store",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		reports, err := a.store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No reports stored. Generate one with: analyst generate TICKER")
			return nil
		}

		for _, r := range reports {
			fmt.Printf("%s  %-8s %-6s %s  (%d chunks)\n", r.ID, r.Ticker, r.Mode, r.CreatedAt, r.ChunkCount)
			if r.Summary != "" {
				fmt.Printf("    %s\n", r.Summary)
			}
		}
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a stored report's markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(report.Markdown)
		return nil
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a stored report and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted report %s\n", args[0])
		return nil
	},
}

func init() {
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
}
