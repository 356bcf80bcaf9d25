package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for rule parsing and validation.
var (
	// ErrInvalidField indicates an out-of-range rule field.
	ErrInvalidField = errors.New("schedule: field out of range")

	// ErrUnknownKind indicates an unrecognized recurrence kind tag.
	ErrUnknownKind = errors.New("schedule: unknown recurrence kind")
)

// envelope is the wire shape for a rule, used both in the HTTP API and in
// the sqlite recurrence column. Absent fields default to zero, matching the
// rule defaults (minute 0, hour 0, Sunday).
type envelope struct {
	Kind    Kind `json:"kind"`
	Minute  int  `json:"minute"`
	Hour    int  `json:"hour,omitempty"`
	Weekday int  `json:"weekday,omitempty"`
}

// Encode serializes a rule to its JSON wire form.
func Encode(r Rule) ([]byte, error) {
	var env envelope
	switch v := r.(type) {
	case Hourly:
		env = envelope{Kind: KindHourly, Minute: v.Minute}
	case Daily:
		env = envelope{Kind: KindDaily, Hour: v.Hour, Minute: v.Minute}
	case Weekly:
		env = envelope{Kind: KindWeekly, Weekday: int(v.Weekday), Hour: v.Hour, Minute: v.Minute}
	default:
		return nil, fmt.Errorf("schedule: encode %T: %w", r, ErrUnknownKind)
	}
	return json.Marshal(env)
}

// Decode parses the JSON wire form into a rule. The result is structurally
// well-formed but not range-checked; call Validate before trusting it.
func Decode(data []byte) (Rule, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("schedule: decode rule: %w", err)
	}
	switch env.Kind {
	case KindHourly:
		return Hourly{Minute: env.Minute}, nil
	case KindDaily:
		return Daily{Hour: env.Hour, Minute: env.Minute}, nil
	case KindWeekly:
		return Weekly{Weekday: time.Weekday(env.Weekday), Hour: env.Hour, Minute: env.Minute}, nil
	default:
		return nil, fmt.Errorf("schedule: kind %q: %w", env.Kind, ErrUnknownKind)
	}
}
