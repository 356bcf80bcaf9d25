// Package history keeps a bounded, newest-first record of past executions
// for observability. Records are immutable once appended; the log retains a
// fixed number and evicts the oldest beyond the cap.
package history

import (
	"sync"
	"time"
)

// DefaultRetention is the number of records kept when no cap is configured.
const DefaultRetention = 10

// Record is one finished execution. JobID is a lookup reference, not
// ownership; the record outlives job deletion.
type Record struct {
	JobID   string
	JobName string
	Time    time.Time
	OK      bool
	Message string
}

// Log is a concurrency-safe bounded execution log.
type Log struct {
	mu      sync.RWMutex
	records []Record // newest first
	cap     int
}

// NewLog creates a log retaining at most cap records. A non-positive cap
// falls back to DefaultRetention.
func NewLog(cap int) *Log {
	if cap <= 0 {
		cap = DefaultRetention
	}
	return &Log{cap: cap}
}

// Append inserts the record at the front and evicts the oldest entries
// beyond the retention cap.
func (l *Log) Append(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append([]Record{r}, l.records...)
	if len(l.records) > l.cap {
		l.records = l.records[:l.cap]
	}
}

// List returns a newest-first copy of the retained records.
func (l *Log) List() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
