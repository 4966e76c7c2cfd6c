package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/switchboard/internal/config"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/spf13/cobra"
)

var (
	settings  *config.Settings
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard is an event-driven IVR engine",
	Long:  `Switchboard runs IVR call flows declared in YAML: prompts, digit collection, validation, dialing and recording.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		s, err := config.Load(path)
		if err != nil {
			return err
		}
		settings = s

		level := s.LogLevel()
		if cmd.Flags().Changed("log-level") {
			level, _ = cmd.Flags().GetString("log-level")
		}
		if s.LogFile() != "" {
			logger, logCloser = logging.NewWithFile(logging.ParseLevel(level), logging.FileOptions{
				Path:       s.LogFile(),
				MaxSizeMB:  s.LogMaxSizeMB(),
				MaxBackups: s.LogMaxBackups(),
			})
		} else {
			logger = logging.New(logging.ParseLevel(level))
		}
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "switchboard.ini", "Settings file (INI)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
