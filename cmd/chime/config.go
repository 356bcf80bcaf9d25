package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chime/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			fmt.Printf("Configuration OK\n")
			fmt.Printf("  gateway:     %s\n", cfg.Gateway.Bind)
			fmt.Printf("  scan period: %s\n", cfg.Scheduler.ScanPeriod.Std())
			if cfg.Storage.Path != "" {
				fmt.Printf("  storage:     %s\n", cfg.Storage.Path)
			} else {
				fmt.Printf("  storage:     in-memory\n")
			}
			if len(cfg.Commands) > 0 {
				fmt.Printf("  commands:    %d mapped\n", len(cfg.Commands))
			}
			return nil
		},
	})
	return cmd
}
