package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"chime/internal/config"
	"chime/internal/engine"
	"chime/internal/history"
	"chime/internal/job"
	"chime/internal/mcp"
	"chime/internal/storage/sqlite"
	"chime/pkg/app"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve job management over the Model Context Protocol on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := app.ResolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			// stdout carries the protocol; keep logs out of the way.
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))

			store := job.NewStore()
			hist := history.NewLog(cfg.Scheduler.HistorySize)

			engCfg := engine.Config{
				Store:   store,
				History: hist,
				Logger:  logger,
			}

			if cfg.Storage.Path != "" {
				durable, err := sqlite.Open(cfg.Storage.Path)
				if err != nil {
					return err
				}
				defer durable.Close()

				if err := app.Seed(context.Background(), durable, store, hist, cfg.Scheduler.HistorySize); err != nil {
					return err
				}

				engCfg.Durable = durable
			}

			return mcp.NewServer(engine.New(engCfg), version).Serve()
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}
