package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/cli"
	"github.com/aretw0/switchboard/internal/presentation/tui"
	httpAdapter "github.com/aretw0/switchboard/pkg/adapters/http"
	"github.com/aretw0/switchboard/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <flow.yaml>",
	Short: "Run a flow against the telephony simulator",
	Long: `Runs one call through the flow without a telephony server. The caller presses the
digits of --script in order; 'h' hangs the caller up, 'x' ends the last dialed
party and ',' waits one extra delay. Every finished node is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		trail, closer, err := cli.NewTrailStore(ctx, settings)
		if err != nil {
			return err
		}
		defer closer.Close()

		streams := httpAdapter.NewStreamManager()
		opts := []switchboard.Option{
			switchboard.WithTrail(trail),
			switchboard.WithObserver(streams),
		}

		addr, _ := cmd.Flags().GetString("http")
		if addr == "" && settings.MetricsEnabled() {
			addr = settings.MetricsAddr()
		}
		reg := prometheus.NewRegistry()
		if addr != "" {
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}
			opts = append(opts, switchboard.WithObserver(metrics))
		}

		engine, err := cli.CreateEngine(args[0], logger, opts...)
		if err != nil {
			return err
		}

		serverDone := make(chan error, 1)
		serverCtx, stopServer := context.WithCancel(ctx)
		defer stopServer()
		if addr != "" {
			handler := httpAdapter.NewHandler(&httpAdapter.Server{
				Flow:     engine.Definition(),
				Trails:   trail,
				Gatherer: reg,
				Streams:  streams,
				Version:  switchboard.Version,
			})
			go func() { serverDone <- cli.Serve(serverCtx, addr, handler, logger) }()
		} else {
			close(serverDone)
		}

		out := cmd.OutOrStdout()
		if term.IsTerminal(int(os.Stdout.Fd())) {
			tui.PrintBanner(out, switchboard.Version)
		}

		script, _ := cmd.Flags().GetString("script")
		runner := switchboard.NewRunner(out, script)
		runner.AutoAnswer = settings.AutoAnswer()
		runner.DigitDelay = settings.DigitDelay()
		if cmd.Flags().Changed("delay") {
			runner.DigitDelay, _ = cmd.Flags().GetDuration("delay")
		}
		runner.Logger = logger

		visits, runErr := runner.Run(ctx, engine)
		fmt.Fprintf(out, "Call visited %d nodes\n", len(visits))
		if runErr != nil {
			fmt.Fprintf(out, "Call ended with error: %v\n", runErr)
		}

		if keep, _ := cmd.Flags().GetBool("keep"); keep && addr != "" {
			fmt.Fprintf(out, "Inspection API on %s, press Ctrl+C to stop\n", addr)
			<-ctx.Done()
		}
		stopServer()
		if err := <-serverDone; err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringP("script", "s", "", "Caller script: DTMF digits plus h, x and ,")
	simulateCmd.Flags().Duration("delay", 0, "Delay before each script symbol (overrides the settings file)")
	simulateCmd.Flags().String("http", "", "Serve the inspection API and metrics on this address during the call")
	simulateCmd.Flags().Bool("keep", false, "Keep serving the inspection API after the call ends")
}
