// Package schedule defines the recurrence rules a job can carry and the
// computation of the next due time. Rules are pure values: Next has no side
// effects and depends only on the rule and the reference time, which keeps
// the scheduler deterministic and testable with a fixed clock.
package schedule

import (
	"fmt"
	"time"
)

// Kind identifies a recurrence rule variant.
type Kind string

// Supported recurrence kinds.
const (
	KindHourly Kind = "hourly"
	KindDaily  Kind = "daily"
	KindWeekly Kind = "weekly"
)

// Rule describes when a job recurs. Each variant carries only the fields
// that are meaningful for it, so an hourly rule cannot smuggle a weekday.
type Rule interface {
	// Kind returns the variant tag.
	Kind() Kind

	// Next returns the first qualifying time strictly after ref. A candidate
	// exactly equal to ref counts as already past and rolls to the next
	// period, so Next(ref) > ref always holds.
	Next(ref time.Time) time.Time

	// Validate checks field ranges. Next does not validate; callers that
	// accept untrusted rules must call Validate first.
	Validate() error

	// String returns a short human-readable description for logs and UIs.
	String() string
}

// Compile-time interface checks.
var (
	_ Rule = Hourly{}
	_ Rule = Daily{}
	_ Rule = Weekly{}
)

// Hourly fires once per hour at the given minute.
type Hourly struct {
	Minute int
}

// Kind implements Rule.
func (Hourly) Kind() Kind { return KindHourly }

// Next implements Rule.
func (r Hourly) Next(ref time.Time) time.Time {
	cand := time.Date(ref.Year(), ref.Month(), ref.Day(), ref.Hour(), r.Minute, 0, 0, ref.Location())
	if !cand.After(ref) {
		cand = cand.Add(time.Hour)
	}
	return cand
}

// Validate implements Rule.
func (r Hourly) Validate() error {
	return checkMinute(r.Minute)
}

// String implements Rule.
func (r Hourly) String() string {
	return fmt.Sprintf("hourly at :%02d", r.Minute)
}

// Daily fires once per day at the given hour and minute.
type Daily struct {
	Hour   int
	Minute int
}

// Kind implements Rule.
func (Daily) Kind() Kind { return KindDaily }

// Next implements Rule.
func (r Daily) Next(ref time.Time) time.Time {
	cand := time.Date(ref.Year(), ref.Month(), ref.Day(), r.Hour, r.Minute, 0, 0, ref.Location())
	if !cand.After(ref) {
		cand = cand.AddDate(0, 0, 1)
	}
	return cand
}

// Validate implements Rule.
func (r Daily) Validate() error {
	if err := checkHour(r.Hour); err != nil {
		return err
	}
	return checkMinute(r.Minute)
}

// String implements Rule.
func (r Daily) String() string {
	return fmt.Sprintf("daily at %02d:%02d", r.Hour, r.Minute)
}

// Weekly fires once per week on the given weekday (time.Weekday, Sunday=0)
// at the given hour and minute.
type Weekly struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// Kind implements Rule.
func (Weekly) Kind() Kind { return KindWeekly }

// Next implements Rule.
func (r Weekly) Next(ref time.Time) time.Time {
	// Normalized day offset in [0,6]; time.Date handles day overflow.
	offset := (int(r.Weekday) - int(ref.Weekday()) + 7) % 7
	cand := time.Date(ref.Year(), ref.Month(), ref.Day()+offset, r.Hour, r.Minute, 0, 0, ref.Location())
	if !cand.After(ref) {
		cand = cand.AddDate(0, 0, 7)
	}
	return cand
}

// Validate implements Rule.
func (r Weekly) Validate() error {
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("schedule: weekday %d out of range [0,6]: %w", r.Weekday, ErrInvalidField)
	}
	if err := checkHour(r.Hour); err != nil {
		return err
	}
	return checkMinute(r.Minute)
}

// String implements Rule.
func (r Weekly) String() string {
	return fmt.Sprintf("weekly on %s at %02d:%02d", r.Weekday, r.Hour, r.Minute)
}

func checkMinute(m int) error {
	if m < 0 || m > 59 {
		return fmt.Errorf("schedule: minute %d out of range [0,59]: %w", m, ErrInvalidField)
	}
	return nil
}

func checkHour(h int) error {
	if h < 0 || h > 23 {
		return fmt.Errorf("schedule: hour %d out of range [0,23]: %w", h, ErrInvalidField)
	}
	return nil
}
