// Command analyst generates investment reports through LLM providers, stores
// them in a searchable knowledge base, and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"analyst/pkg/chat"
	"analyst/pkg/config"
	"analyst/pkg/embed"
	"analyst/pkg/llm"
	"analyst/pkg/llm/factory"
	llmmetrics "analyst/pkg/llm/metrics"
	"analyst/pkg/llm/retry"
	"analyst/pkg/logx"
	"analyst/pkg/metrics"
	"analyst/pkg/pipeline"
	"analyst/pkg/render"
	"analyst/pkg/store"
	"analyst/pkg/version"
)

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "analyst",
	Short:   "LLM-driven investment report pipeline",
	Long:    "Analyst generates investment analysis reports via LLM providers, indexes them for similarity search, and answers grounded questions about them.",
	Version: fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logx.SetDebug(true, nil)
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(usageCmd)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// app holds the wired dependencies shared by the commands.
type app struct {
	store    *store.Store
	orch     *pipeline.Orchestrator
	answerer *chat.Answerer
	renderer *render.Renderer
	recorder *metrics.PipelineRecorder
	close    func()
}

// buildApp wires the full dependency graph. withMetrics controls whether
// Prometheus collectors are registered; one-shot commands skip them.
func buildApp(withMetrics bool) (*app, error) {
	db, err := store.OpenDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	gateway, err := embed.NewGateway(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	base, err := factory.NewGenerationClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	policy := retry.NewPolicy(cfg.Retry)

	var recorder *metrics.PipelineRecorder
	genClient := base
	chatClient := llm.Chain(base, retry.Middleware(policy))
	if withMetrics {
		recorder = metrics.NewPipelineRecorder()
		llmRecorder := llmmetrics.NewRecorder()
		genClient = llm.Chain(base, llmmetrics.Middleware(llmRecorder))
		chatClient = llm.Chain(base, retry.Middleware(policy), llmmetrics.Middleware(llmRecorder))
	}

	st := store.New(db, gateway, cfg.Chunker)
	renderer := render.NewRenderer(cfg.OutputDir)

	opts := []pipeline.Option{}
	if recorder != nil {
		opts = append(opts, pipeline.WithObserver(recorder))
	}
	orch := pipeline.New(genClient, policy, st, renderer, opts...)

	counter, err := chat.NewTokenCounter()
	if err != nil {
		db.Close()
		return nil, err
	}
	answerer := chat.New(gateway, st, chatClient, counter, cfg.Chat)

	return &app{
		store:    st,
		orch:     orch,
		answerer: answerer,
		renderer: renderer,
		recorder: recorder,
		close:    func() { _ = db.Close() },
	}, nil
}
