package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrCodeEU/livegate/pkg/config"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

// Version is the application version.
const Version = "0.3.0"

var (
	cfg        *config.Config
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "livegate",
	Short:         "Face liveness gate: blocks photos, screens and replays before matching",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not read .env: %v\n", err)
		}

		path := configFile
		if path == "" {
			path = config.ConfigPathFromEnv()
		}

		var err error
		if path != "" {
			cfg, err = config.Load(path)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
			cfg = config.DefaultConfig()
		}

		cfg.ApplyEnv()
		cfg.ExpandPaths()
		if debug {
			cfg.Logging.Level = "debug"
		}

		if err := logging.Init(cfg.LoggingOptions()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
		}

		logging.Debugf("livegate v%s starting", Version)
		logging.Debugf("Config loaded, storage dir: %s", cfg.Storage.DataDir)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file (env: LIVEGATE_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exit *exitError
		if asExit(err, &exit) {
			stop()
			os.Exit(exit.code)
		}
		logging.WithError(err).Error("Command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
