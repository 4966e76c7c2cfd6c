package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/cli"
	"github.com/aretw0/switchboard/internal/validator"
	httpAdapter "github.com/aretw0/switchboard/pkg/adapters/http"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <flow.yaml>",
	Short: "Start the inspection HTTP server",
	Long: `Serves the flow graph and the call trails recorded in the configured trail
backend. Pair it with the redis backend to inspect calls handled elsewhere.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		def, err := flow.Load(args[0])
		if err != nil {
			return err
		}
		if err := validator.ValidateFlow(def, nil); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		trail, closer, err := cli.NewTrailStore(ctx, settings)
		if err != nil {
			return err
		}
		defer closer.Close()

		addr, _ := cmd.Flags().GetString("addr")
		handler := httpAdapter.NewHandler(&httpAdapter.Server{
			Flow:     def,
			Trails:   trail,
			Gatherer: prometheus.DefaultGatherer,
			Version:  switchboard.Version,
		})
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s (trail backend: %s)\n", args[0], addr, settings.TrailBackend())
		return cli.Serve(ctx, addr, handler, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
