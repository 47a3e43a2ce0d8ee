package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"quizclash/internal/events"
)

const (
	publishQueueSize   = 64
	publishMaxAttempts = 3
	publishBackoff     = 50 * time.Millisecond
)

// sendFunc delivers one serialized frame to a room's subscribers.
type sendFunc func(roomID string, data []byte) error

// publisher serializes publishes per room so frames go out in submission
// order even when issued concurrently. A failed send is retried with backoff
// and then dropped with a log line; it never blocks or fails the state
// transition that triggered it.
type publisher struct {
	mu     sync.Mutex
	send   sendFunc
	queues map[string]*roomQueue
	closed bool
}

type roomQueue struct {
	ch   chan events.Event
	done chan struct{}
	seq  int64
}

func newPublisher(send sendFunc) *publisher {
	return &publisher{
		send:   send,
		queues: make(map[string]*roomQueue),
	}
}

func (p *publisher) Publish(roomID string, ev events.Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		log.Printf("publisher closed, dropping event room_id=%s type=%s", roomID, ev.Type)
		return
	}
	queue, ok := p.queues[roomID]
	if !ok {
		queue = &roomQueue{
			ch:   make(chan events.Event, publishQueueSize),
			done: make(chan struct{}),
		}
		p.queues[roomID] = queue
		go p.drain(roomID, queue)
	}
	queue.seq++
	ev.Seq = queue.seq
	ev.RoomID = roomID
	// Enqueue before unlocking so sequence order and channel order agree.
	select {
	case queue.ch <- ev:
	default:
		log.Printf("publish queue full, dropping event room_id=%s type=%s seq=%d", roomID, ev.Type, ev.Seq)
	}
	p.mu.Unlock()
}

func (p *publisher) drain(roomID string, queue *roomQueue) {
	defer close(queue.done)
	for ev := range queue.ch {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("event marshal failed room_id=%s type=%s error=%v", roomID, ev.Type, err)
			continue
		}
		var sendErr error
		for attempt := 1; attempt <= publishMaxAttempts; attempt++ {
			if sendErr = p.send(roomID, data); sendErr == nil {
				break
			}
			time.Sleep(publishBackoff * time.Duration(attempt))
		}
		if sendErr != nil {
			log.Printf("event dropped after retries room_id=%s type=%s seq=%d error=%v", roomID, ev.Type, ev.Seq, sendErr)
		}
	}
}

// CloseRoom stops the room's queue once pending events are drained.
func (p *publisher) CloseRoom(roomID string) {
	p.mu.Lock()
	queue, ok := p.queues[roomID]
	if ok {
		delete(p.queues, roomID)
	}
	p.mu.Unlock()
	if ok {
		close(queue.ch)
		<-queue.done
	}
}

// Flush blocks until every event published so far has been delivered.
// The publisher stays usable afterwards.
func (p *publisher) Flush() {
	p.mu.Lock()
	queues := p.queues
	p.queues = make(map[string]*roomQueue)
	p.mu.Unlock()
	for _, queue := range queues {
		close(queue.ch)
	}
	for _, queue := range queues {
		<-queue.done
	}
}

// Wait shuts the publisher down and blocks until all queues have drained.
// Publishes arriving afterwards are dropped, so shutdown cannot be held
// open by a late background broadcast.
func (p *publisher) Wait() {
	p.mu.Lock()
	p.closed = true
	queues := p.queues
	p.queues = make(map[string]*roomQueue)
	p.mu.Unlock()
	for _, queue := range queues {
		close(queue.ch)
	}
	for _, queue := range queues {
		<-queue.done
	}
}
