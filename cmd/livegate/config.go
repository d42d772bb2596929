package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MrCodeEU/livegate/pkg/logging"
)

var configInitPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the effective configuration after defaults, the config file and
LIVEGATE_* overrides are applied.

Configuration locations:
  System: /etc/livegate/livegate.yaml
  User:   ~/.config/livegate/livegate.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configInitPath != "" {
			if _, err := os.Stat(configInitPath); err == nil {
				return fmt.Errorf("%s already exists", configInitPath)
			}
			if err := cfg.Save(configInitPath); err != nil {
				return err
			}
			fmt.Printf("Wrote configuration to %s\n", configInitPath)
			return nil
		}

		logging.Debugf("Showing configuration")
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Println("# Current Configuration")
		fmt.Print(string(data))

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "\n%s %v\n", blockColor.Sprint("invalid:"), err)
		}
		return nil
	},
}

func init() {
	configCmd.Flags().StringVar(&configInitPath, "init", "", "Write the effective configuration to this path")
	rootCmd.AddCommand(configCmd)
}
