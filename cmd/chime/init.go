package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"chime/internal/config"
	"chime/pkg/app"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively generate a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("output")
			return runInitWizard(out)
		},
	}
	cmd.Flags().StringP("output", "o", "chime.yaml", "Where to write the configuration")
	return cmd
}

func runInitWizard(out string) error {
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", out)
	}

	var (
		bind       = config.DefaultBind
		scanPeriod = "10s"
		persist    = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gateway listen address").
				Description("host:port for the HTTP API").
				Value(&bind),
			huh.NewSelect[string]().
				Title("Scan period").
				Description("How often due jobs are checked").
				Options(huh.NewOptions("10s", "30s", "1m")...).
				Value(&scanPeriod),
			huh.NewConfirm().
				Title("Persist jobs to disk?").
				Description("Jobs and history survive restarts via sqlite").
				Value(&persist),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	period, err := time.ParseDuration(scanPeriod)
	if err != nil {
		return err
	}

	cfg := config.Config{
		LogLevel: "info",
		Scheduler: config.SchedulerConfig{
			ScanPeriod:  config.Duration(period),
			HistorySize: config.DefaultHistorySize,
		},
		Gateway: config.GatewayConfig{Bind: bind},
	}
	if persist {
		cfg.Storage.Path = filepath.Join(app.DefaultDataDir(), "chime.db")
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", out)
	fmt.Println("Start the daemon with: chime start -c " + out)
	return nil
}
