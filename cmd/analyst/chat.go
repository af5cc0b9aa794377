package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	chatReportID string
	chatTopK     int
	chatEvidence bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question grounded in stored reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := signalContext()
		defer cancel()

		answer, err := a.answerer.Answer(ctx, args[0], chatReportID, chatTopK)
		if err != nil {
			return err
		}

		fmt.Println(answer.Reply)
		if chatEvidence && len(answer.Evidence) > 0 {
			fmt.Println("\nEvidence:")
			for _, ev := range answer.Evidence {
				fmt.Printf("  [%s] report %s chunk %d (score %.3f)\n", ev.Ref, ev.ReportID, ev.ChunkIndex, ev.Score)
			}
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatReportID, "report", "", "Restrict retrieval to one report ID")
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "Number of chunks to retrieve (0 = default)")
	chatCmd.Flags().BoolVar(&chatEvidence, "evidence", false, "Print the excerpts that grounded the answer")
}
