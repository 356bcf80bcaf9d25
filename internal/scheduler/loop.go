// Package scheduler contains the scheduling engine: a periodic scan that
// detects due jobs and dispatches each at most once per occurrence, and the
// executor that runs job actions without letting failures escape.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"chime/internal/eventbus"
	"chime/internal/history"
	"chime/internal/job"
)

// DefaultScanPeriod is the scan interval when none is configured.
const DefaultScanPeriod = 10 * time.Second

// ErrAlreadyRunning indicates Start was called on a running loop.
var ErrAlreadyRunning = errors.New("scheduler: loop already running")

// Persister mirrors engine mutations into a durable store. Implementations
// must be safe for concurrent use. A nil Persister disables persistence.
type Persister interface {
	SaveJob(ctx context.Context, j job.Job) error
	AppendExecution(ctx context.Context, r history.Record) error
}

// ExecutionEvent is the payload published on the bus after each execution.
type ExecutionEvent struct {
	JobID    string        `json:"job_id"`
	JobName  string        `json:"job_name"`
	OK       bool          `json:"ok"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	NextRun  time.Time     `json:"next_run,omitzero"`
}

// LoopConfig holds the dependencies and knobs for a Loop.
type LoopConfig struct {
	Store    *job.Store   // required
	History  *history.Log // required
	Executor *Executor    // required

	Persister Persister     // optional
	Bus       *eventbus.Bus // optional
	Metrics   *Metrics      // optional
	Logger    *slog.Logger  // nil means slog.Default

	// Now is the injectable clock. Nil means time.Now.
	Now func() time.Time

	// ScanPeriod is the interval between due-job scans.
	// Non-positive means DefaultScanPeriod.
	ScanPeriod time.Duration
}

// Loop is the single scheduling authority: one instance drives all due
// detection. The scan itself never blocks on a running action; dispatches
// for distinct jobs run concurrently on their own goroutines, while an
// in-flight set guarantees a job observed as due on consecutive scans is
// not dispatched twice before its prior run completes.
type Loop struct {
	store   *job.Store
	history *history.Log
	exec    *Executor
	persist Persister
	bus     *eventbus.Bus
	metrics *Metrics
	logger  *slog.Logger
	period  time.Duration
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

// NewLoop creates a stopped loop. Call Start to begin scanning.
func NewLoop(cfg LoopConfig) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	period := cfg.ScanPeriod
	if period <= 0 {
		period = DefaultScanPeriod
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Loop{
		store:    cfg.Store,
		history:  cfg.History,
		exec:     cfg.Executor,
		persist:  cfg.Persister,
		bus:      cfg.Bus,
		metrics:  cfg.Metrics,
		logger:   logger,
		period:   period,
		now:      now,
		inflight: make(map[string]struct{}),
	}
}

// Start launches the scan ticker. The loop runs until Stop is called or the
// context is cancelled.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.wg.Add(1)
	go l.run(ctx)

	l.logger.Info("scheduler: loop started", "period", l.period)
	return nil
}

// Stop cancels scanning and waits for in-flight dispatches to finish, up to
// the given context's deadline.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("scheduler: loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight returns the number of executions currently running.
func (l *Loop) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inflight)
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.scanOnce(ctx)
		}
	}
}

// scanOnce snapshots the store and dispatches every due job that is not
// already in flight. The snapshot is cheap; nothing in this method blocks
// on job execution.
func (l *Loop) scanOnce(ctx context.Context) {
	now := l.now()
	if l.metrics != nil {
		l.metrics.Scans.Inc()
	}

	active := 0
	for _, j := range l.store.List() {
		if j.Active {
			active++
		}
		if !j.Due(now) {
			continue
		}
		if !l.markInFlight(j.ID) {
			l.logger.Debug("scheduler: job still running, skipping", "job", j.Name)
			continue
		}
		if l.metrics != nil {
			l.metrics.Dispatches.Inc()
			l.metrics.InFlight.Inc()
		}
		l.wg.Add(1)
		go l.dispatch(ctx, j, now)
	}

	if l.metrics != nil {
		l.metrics.ActiveJobs.Set(float64(active))
	}
}

// dispatch runs one job occurrence and records the result. Faults here are
// isolated per job: a panic is logged and the loop keeps ticking.
func (l *Loop) dispatch(ctx context.Context, j job.Job, firedAt time.Time) {
	defer l.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("scheduler: panic in dispatch",
				"job", j.Name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		l.clearInFlight(j.ID)
		if l.metrics != nil {
			l.metrics.InFlight.Dec()
		}
	}()

	out := l.exec.Execute(ctx, j)
	if !out.OK && l.metrics != nil {
		l.metrics.Failures.Inc()
	}

	rec := history.Record{
		JobID:   j.ID,
		JobName: j.Name,
		Time:    firedAt,
		OK:      out.OK,
		Message: out.Message,
	}
	l.history.Append(rec)

	// Shutdown cancels ctx while dispatches drain; the mirror writes for a
	// run that did happen must still go through.
	persistCtx := context.WithoutCancel(ctx)

	// Advance the schedule whether the run succeeded or failed; a failure
	// does not retry the same occurrence.
	updated, err := l.store.RecordExecution(j.ID, firedAt)
	switch {
	case err == nil:
		if l.persist != nil {
			if perr := l.persist.SaveJob(persistCtx, updated); perr != nil {
				l.logger.Error("scheduler: persist job", "job", j.Name, "error", perr)
			}
		}
	case errors.Is(err, job.ErrNotFound):
		// Deleted while running. The run completed; its record stays in
		// history but there is no schedule left to advance.
		l.logger.Debug("scheduler: job removed mid-flight", "job", j.Name)
	default:
		l.logger.Error("scheduler: record execution", "job", j.Name, "error", err)
	}

	if l.persist != nil {
		if perr := l.persist.AppendExecution(persistCtx, rec); perr != nil {
			l.logger.Error("scheduler: persist execution", "job", j.Name, "error", perr)
		}
	}

	if l.bus != nil {
		l.bus.Publish(eventbus.Event{
			Type: eventbus.TypeExecutionFinished,
			Data: ExecutionEvent{
				JobID:    j.ID,
				JobName:  j.Name,
				OK:       out.OK,
				Message:  out.Message,
				Duration: out.Duration,
				NextRun:  updated.NextRun,
			},
		})
	}

	if out.OK {
		l.logger.Debug("scheduler: job completed", "job", j.Name, "dur", out.Duration)
	} else {
		l.logger.Warn("scheduler: job failed", "job", j.Name, "dur", out.Duration, "reason", out.Message)
	}
}

func (l *Loop) markInFlight(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, running := l.inflight[id]; running {
		return false
	}
	l.inflight[id] = struct{}{}
	return true
}

func (l *Loop) clearInFlight(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, id)
}
