package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"analyst/pkg/pipeline"
)

var (
	batchMode   string
	batchNoSave bool
	batchYes    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [watchlist.yaml]",
	Short: "Generate reports for every subject in a watchlist",
	Long: `Generate reports sequentially for a YAML watchlist of the form:

  subjects:
    - ticker: AAPL
      company_name: Apple Inc.
    - ticker: MSFT

Runs are spaced out by the configured cooldown. When the provider reports
sustained unavailability the batch pauses and asks whether to continue.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subjects, err := loadWatchlist(args[0])
		if err != nil {
			return err
		}
		if len(subjects) == 0 {
			return fmt.Errorf("watchlist %s contains no subjects", args[0])
		}

		a, err := buildApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := signalContext()
		defer cancel()

		runner := pipeline.NewBatchRunner(a.orch, cfg.Batch, batchConfirm())
		summary, err := runner.Run(ctx, subjects, pipeline.Request{
			Mode:    batchMode,
			Persist: !batchNoSave,
			Export:  true,
		})
		if summary != nil {
			printBatchSummary(summary)
		}
		return err
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchMode, "mode", "m", "team", "Generation mode: team or simple")
	batchCmd.Flags().BoolVar(&batchNoSave, "no-save", false, "Skip saving reports to the knowledge store")
	batchCmd.Flags().BoolVarP(&batchYes, "yes", "y", false, "Continue past provider-unavailable failures without prompting")
}

// batchConfirm returns the operator confirmation hook. Without a terminal
// there is nobody to ask, so the batch stops unless --yes was given.
func batchConfirm() pipeline.ConfirmFunc {
	if batchYes {
		return func(pipeline.Subject, error) bool { return true }
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return func(failed pipeline.Subject, err error) bool {
		fmt.Printf("Provider unavailable while processing %s:\n  %v\n", failed.Ticker, err)
		fmt.Printf("Pause %ds and continue with the remaining subjects? [y/N]: ", cfg.Batch.UnavailablePauseSec)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		return answer == "y" || answer == "yes"
	}
}

type watchlistFile struct {
	Subjects []pipeline.Subject `yaml:"subjects"`
}

func loadWatchlist(path string) ([]pipeline.Subject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading watchlist: %w", err)
	}

	var file watchlistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing watchlist %s: %w", path, err)
	}
	if len(file.Subjects) > 0 {
		return file.Subjects, nil
	}

	// Also accept a bare top-level list of subjects.
	var bare []pipeline.Subject
	if err := yaml.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	return nil, nil
}

func printBatchSummary(summary *pipeline.BatchSummary) {
	fmt.Printf("\nBatch finished: %d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	for _, outcome := range summary.Outcomes {
		status := "ok"
		if outcome.Err != nil {
			status = outcome.Err.Error()
		}
		fmt.Printf("  %-8s %s (%.0fs)\n", outcome.Subject.Ticker, status, outcome.Duration.Seconds())
	}
	if summary.Stopped {
		fmt.Println("Batch stopped before completing all subjects.")
	}
}
