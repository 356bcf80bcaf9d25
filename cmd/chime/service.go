package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"chime/pkg/app"
)

// program adapts the daemon to the service manager lifecycle.
type program struct {
	configPath string
	errCh      chan error
}

// Start implements service.Interface. Run blocks, so it goes on its own
// goroutine.
func (p *program) Start(service.Service) error {
	go func() {
		p.errCh <- app.Run(app.RunParams{
			ConfigPath: p.configPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
		})
	}()
	return nil
}

// Stop implements service.Interface. The daemon shuts down on the signal
// the service manager sends; nothing extra to do here.
func (p *program) Stop(service.Service) error {
	return nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "service [install|uninstall|start|stop|run]",
		Short:     "Manage the system service (systemd, launchd, ...)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"install", "uninstall", "start", "stop", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")

			svcConfig := &service.Config{
				Name:        "chime",
				DisplayName: "chime scheduler",
				Description: "Recurring job scheduler daemon",
				Arguments:   []string{"service", "run"},
			}
			if cfgPath != "" {
				svcConfig.Arguments = append(svcConfig.Arguments, "--config", cfgPath)
			}

			prg := &program{configPath: cfgPath, errCh: make(chan error, 1)}
			svc, err := service.New(prg, svcConfig)
			if err != nil {
				return err
			}

			action := args[0]
			if action == "run" {
				return svc.Run()
			}

			if err := service.Control(svc, action); err != nil {
				return err
			}
			fmt.Printf("service %s: done\n", action)
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}
