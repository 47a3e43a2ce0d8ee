package client

import (
	"sort"
	"sync"
	"time"

	"quizclash/internal/events"
)

const defaultBufferWindow = 100 * time.Millisecond

// EventBuffer absorbs network jitter: incoming events are held for a short
// window, sorted by sequence, and only then handed to the listener. The
// transport itself makes no ordering promise.
type EventBuffer struct {
	mu      sync.Mutex
	window  time.Duration
	pending []events.Event
	timer   *time.Timer
	deliver func(events.Event)
}

func NewEventBuffer(window time.Duration, deliver func(events.Event)) *EventBuffer {
	if window <= 0 {
		window = defaultBufferWindow
	}
	return &EventBuffer{
		window:  window,
		deliver: deliver,
	}
}

func (b *EventBuffer) Add(ev events.Event) {
	b.mu.Lock()
	b.pending = append(b.pending, ev)
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.Flush)
	}
	b.mu.Unlock()
}

// Flush drains the pending events in sequence order.
func (b *EventBuffer) Flush() {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Seq < batch[j].Seq
	})
	for _, ev := range batch {
		b.deliver(ev)
	}
}
