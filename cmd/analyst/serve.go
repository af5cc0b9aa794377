package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"analyst/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.ServerAddr = serveAddr
		}

		a, err := buildApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Printf("Serving on %s (Ctrl+C to stop)\n", cfg.ServerAddr)
		srv := server.New(cfg, a.store, a.orch, a.answerer, a.renderer, a.recorder)
		if err := srv.Serve(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides config)")
}
