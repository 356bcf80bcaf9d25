package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"chime/internal/job"
)

// Action is the opaque unit of work a job performs.
type Action func(ctx context.Context) error

// ActionProvider resolves the action to run for a given job. The engine
// treats the returned action as opaque; a nil action is reported as a
// failed execution.
type ActionProvider interface {
	ActionFor(j job.Job) Action
}

// LogProvider is the default provider: firing a job just logs it.
// Embedders supply their own provider for real work.
type LogProvider struct {
	Logger *slog.Logger
}

// Compile-time interface check.
var _ ActionProvider = LogProvider{}

// ActionFor implements ActionProvider.
func (p LogProvider) ActionFor(j job.Job) Action {
	return func(context.Context) error {
		p.Logger.Info("scheduler: job fired", "job", j.Name, "rule", j.Rule.String())
		return nil
	}
}

// CommandProvider runs a configured shell command for jobs whose name has a
// mapping; other jobs fall back to the wrapped provider.
type CommandProvider struct {
	// Commands maps job names to shell command lines.
	Commands map[string]string

	// Fallback resolves jobs without a command mapping. Required.
	Fallback ActionProvider
}

// Compile-time interface check.
var _ ActionProvider = CommandProvider{}

// ActionFor implements ActionProvider.
func (p CommandProvider) ActionFor(j job.Job) Action {
	cmdline, ok := p.Commands[j.Name]
	if !ok {
		return p.Fallback.ActionFor(j)
	}
	return func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", cmdline)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("scheduler: command for %q: %w (output: %s)",
				j.Name, err, strings.TrimSpace(string(out)))
		}
		return nil
	}
}
