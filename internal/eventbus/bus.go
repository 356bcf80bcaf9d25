// Package eventbus provides a small in-process fanout bus that decouples
// the scheduling engine from observers such as the websocket event stream.
// Publish never blocks; slow subscribers drop events rather than stalling
// the scheduler.
package eventbus

import (
	"sync"
	"time"
)

// Event types published by the engine.
const (
	TypeJobCreated        = "job.created"
	TypeJobToggled        = "job.toggled"
	TypeJobDeleted        = "job.deleted"
	TypeExecutionFinished = "execution.finished"
)

// Event is a lightweight signal. Data should be small and JSON-serializable
// so the websocket stream can forward it as-is.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// Bus is an in-memory fanout bus. The zero value is not usable; use New.
type Bus struct {
	mu   sync.Mutex
	subs map[uint64]chan Event
	seq  uint64
}

// New creates an empty bus. It owns no background goroutines.
func New() *Bus {
	return &Bus{subs: make(map[uint64]chan Event)}
}

// Publish delivers the event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.Lock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.Unlock()

	for _, ch := range chs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a buffered subscriber channel. The returned cancel
// function removes the subscription; the channel is never closed by the
// bus, so a pending receive after cancel simply drains remaining events.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
	return ch, cancel
}
