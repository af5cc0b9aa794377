package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"analyst/pkg/pipeline"
)

var (
	generateCompany string
	generateMode    string
	generateNoSave  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [ticker]",
	Short: "Generate an investment report for one ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.orch.Run(ctx, pipeline.Request{
			Ticker:      args[0],
			CompanyName: generateCompany,
			Mode:        generateMode,
			Persist:     !generateNoSave,
			Export:      true,
		})
		if err != nil {
			return err
		}

		if result.MarkdownPath != "" {
			fmt.Printf("Report written to %s\n", result.MarkdownPath)
		}
		if result.Report != nil {
			fmt.Printf("Saved as %s (%d chunks indexed)\n", result.Report.ID, result.Report.ChunkCount)
		}
		if result.StorageErr != nil {
			fmt.Printf("Warning: %v\n", result.StorageErr)
		}
		if result.RenderErr != nil {
			fmt.Printf("Warning: %v\n", result.RenderErr)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateCompany, "company", "", "Company name for the ticker")
	generateCmd.Flags().StringVarP(&generateMode, "mode", "m", "team", "Generation mode: team or simple")
	generateCmd.Flags().BoolVar(&generateNoSave, "no-save", false, "Skip saving the report to the knowledge store")
}
