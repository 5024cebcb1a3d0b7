package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"shortlink/internal/config"
	"shortlink/internal/logger"
)

var (
	configPath string

	// Cfg and log are loaded once before any subcommand runs.
	Cfg *config.Config
	log *slog.Logger
)

// RootCmd is the shortlink binary.
var RootCmd = &cobra.Command{
	Use:           "shortlink",
	Short:         "URL shortener service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = os.Getenv("SHORTLINK_CONFIG")
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		Cfg = cfg
		log = logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default: $SHORTLINK_CONFIG)")
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		if log != nil {
			log.Error("command failed", "error", err)
		} else {
			slog.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}
