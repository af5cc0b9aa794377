package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"analyst/pkg/metrics"
)

var usageTicker string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Query run and provider usage from Prometheus",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := metrics.NewQueryService(cfg.PrometheusURL)
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		if usageTicker != "" {
			usage, err := svc.GetTickerUsage(ctx, usageTicker)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d runs (%d succeeded, %d failed)\n",
				usage.Ticker, usage.Runs, usage.Succeeded, usage.Failed)
		}

		models, err := svc.GetModelUsage(ctx)
		if err != nil {
			return err
		}
		if len(models) == 0 {
			fmt.Println("No provider usage recorded.")
			return nil
		}

		names := make([]string, 0, len(models))
		for name := range models {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println("Provider usage by model:")
		for _, name := range names {
			m := models[name]
			fmt.Printf("  %-30s %6d requests, %d errors, avg %.2fs\n",
				m.Model, m.Requests, m.Errors, m.AvgLatencySeconds)
		}
		return nil
	},
}

func init() {
	usageCmd.Flags().StringVarP(&usageTicker, "ticker", "t", "", "Show run totals for one ticker")
}
