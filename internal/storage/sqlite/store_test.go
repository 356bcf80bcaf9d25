package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"chime/internal/history"
	"chime/internal/job"
	"chime/internal/schedule"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chime.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleJob(id string, created time.Time) job.Job {
	return job.Job{
		ID:        id,
		Name:      "sample-" + id,
		Rule:      schedule.Daily{Hour: 9, Minute: 30},
		Active:    true,
		NextRun:   created.Add(time.Hour),
		CreatedAt: created,
	}
}

func TestStore_SaveAndLoadJobs(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

	first := sampleJob("a", base)
	second := sampleJob("b", base.Add(time.Minute))
	second.Rule = schedule.Weekly{Weekday: time.Wednesday, Hour: 9}
	second.LastRun = base.Add(30 * time.Minute)
	second.Active = false

	for _, j := range []job.Job{first, second} {
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob(%s): %v", j.ID, err)
		}
	}

	loaded, err := s.LoadJobs(ctx)
	if err != nil {
		t.Fatalf("LoadJobs: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d jobs, want 2", len(loaded))
	}

	// Oldest-created first, so re-insertion reproduces creation order.
	if loaded[0].ID != "a" || loaded[1].ID != "b" {
		t.Errorf("order = [%s, %s], want [a, b]", loaded[0].ID, loaded[1].ID)
	}

	got := loaded[1]
	if got.Rule != second.Rule {
		t.Errorf("Rule = %#v, want %#v", got.Rule, second.Rule)
	}
	if got.Active {
		t.Error("Active flag lost")
	}
	if !got.LastRun.Equal(second.LastRun) {
		t.Errorf("LastRun = %v, want %v", got.LastRun, second.LastRun)
	}
	if !loaded[0].LastRun.IsZero() {
		t.Errorf("zero LastRun not preserved: %v", loaded[0].LastRun)
	}
}

func TestStore_SaveJob_Replaces(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

	j := sampleJob("a", base)
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	j.LastRun = base.Add(time.Hour)
	j.NextRun = base.Add(25 * time.Hour)
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatalf("SaveJob update: %v", err)
	}

	loaded, err := s.LoadJobs(ctx)
	if err != nil {
		t.Fatalf("LoadJobs: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d jobs, want 1", len(loaded))
	}
	if !loaded[0].NextRun.Equal(j.NextRun) {
		t.Errorf("NextRun = %v, want %v", loaded[0].NextRun, j.NextRun)
	}
}

func TestStore_DeleteJob_Idempotent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	j := sampleJob("a", time.Now().UTC())
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	if err := s.DeleteJob(ctx, j.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	// Absent row: still no error.
	if err := s.DeleteJob(ctx, j.ID); err != nil {
		t.Fatalf("second DeleteJob: %v", err)
	}

	loaded, err := s.LoadJobs(ctx)
	if err != nil {
		t.Fatalf("LoadJobs: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d jobs after delete, want 0", len(loaded))
	}
}

func TestStore_Executions(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		r := history.Record{
			JobID:   "j1",
			JobName: "nightly",
			Time:    base.Add(time.Duration(i) * time.Hour),
			OK:      i != 2,
			Message: "",
		}
		if !r.OK {
			r.Message = "transient error"
		}
		if err := s.AppendExecution(ctx, r); err != nil {
			t.Fatalf("AppendExecution(%d): %v", i, err)
		}
	}

	records, err := s.LoadExecutions(ctx, 3)
	if err != nil {
		t.Fatalf("LoadExecutions: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("loaded %d records, want 3", len(records))
	}
	// Newest first.
	if !records[0].Time.Equal(base.Add(4 * time.Hour)) {
		t.Errorf("records[0].Time = %v, want %v", records[0].Time, base.Add(4*time.Hour))
	}
	if !records[2].Time.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("records[2].Time = %v, want %v", records[2].Time, base.Add(2*time.Hour))
	}
	if records[2].OK || records[2].Message != "transient error" {
		t.Errorf("failure record lost: %+v", records[2])
	}
}

func TestStore_PruneExecutions(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		r := history.Record{JobID: "j1", JobName: "old", Time: base.Add(time.Duration(i) * time.Hour), OK: true}
		if err := s.AppendExecution(ctx, r); err != nil {
			t.Fatalf("AppendExecution: %v", err)
		}
	}

	pruned, err := s.PruneExecutions(ctx, base.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("PruneExecutions: %v", err)
	}
	if pruned != 5 {
		t.Errorf("pruned = %d, want 5", pruned)
	}

	remaining, err := s.LoadExecutions(ctx, 100)
	if err != nil {
		t.Fatalf("LoadExecutions: %v", err)
	}
	if len(remaining) != 5 {
		t.Errorf("remaining = %d, want 5", len(remaining))
	}
}

func TestStore_Checkpoint(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if err := s.Checkpoint(context.Background()); err != nil {
		t.Errorf("Checkpoint: %v", err)
	}
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "chime.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.SaveJob(context.Background(), sampleJob("a", time.Now().UTC())); err != nil {
		t.Errorf("SaveJob: %v", err)
	}
}
