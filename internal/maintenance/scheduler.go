package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler manages periodic task execution using cron expressions.
// Each task is protected by a per-task mutex to prevent parallel execution
// of the same task (uses TryLock — atomic, no race).
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	tasks  []Task
	names  map[string]struct{}
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Tasks must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		names:  make(map[string]struct{}),
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}
}

// Register adds a task to the scheduler. Must be called before Start().
// Returns an error if a task with the same name is already registered.
func (s *Scheduler) Register(t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := t.Name()
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("maintenance: duplicate task name %q", name)
	}

	s.names[name] = struct{}{}
	s.locks[name] = &sync.Mutex{}
	s.tasks = append(s.tasks, t)
	return nil
}

// Start initializes the cron scheduler and begins executing registered
// tasks. Returns an error if any task has an invalid schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser))

	for _, task := range s.tasks {
		lock := s.locks[task.Name()]

		_, err := s.cron.AddFunc(task.Schedule(), func() {
			// TryLock is atomic — no race between check and acquire.
			// If the previous tick is still running, skip this one.
			if !lock.TryLock() {
				s.logger.Warn("maintenance: task still running, skipping tick",
					"task", task.Name(),
				)
				return
			}
			defer lock.Unlock()

			s.logger.Debug("maintenance: task started", "task", task.Name())
			if err := task.Run(ctx); err != nil {
				s.logger.Error("maintenance: task failed",
					"task", task.Name(),
					"error", err,
				)
			} else {
				s.logger.Debug("maintenance: task completed", "task", task.Name())
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("maintenance: invalid schedule for task %q: %w", task.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("maintenance: scheduler started", "tasks", len(s.tasks))
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for in-flight tasks.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		// Wait for running tasks to complete.
		<-s.cron.Stop().Done()
		s.logger.Info("maintenance: scheduler stopped")
	}
	return nil
}
