package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/robfig/cron/v3"
)

var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Validate checks the structural validity of a Config. Call Normalize
// first so defaults are in place.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: invalid log_level %q (debug, info, warn, error)", cfg.LogLevel))
	}

	if _, _, err := net.SplitHostPort(cfg.Gateway.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid gateway.bind %q: %w", cfg.Gateway.Bind, err))
	}

	if cfg.Scheduler.RunTimeout < 0 {
		errs = append(errs, errors.New("config: scheduler.run_timeout must not be negative"))
	}

	if s := cfg.Maintenance.PruneSchedule; s != "" {
		if _, err := scheduleParser.Parse(s); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid maintenance.prune_schedule %q: %w", s, err))
		}
	}
	if s := cfg.Maintenance.CheckpointSchedule; s != "" {
		if _, err := scheduleParser.Parse(s); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid maintenance.checkpoint_schedule %q: %w", s, err))
		}
	}

	for name, command := range cfg.Commands {
		if name == "" {
			errs = append(errs, errors.New("config: commands: empty job name"))
		}
		if command == "" {
			errs = append(errs, fmt.Errorf("config: commands: empty command for job %q", name))
		}
	}

	return errors.Join(errs...)
}
