package scanner

import (
	"sync"

	"github.com/google/uuid"

	"github.com/privya-inc/privya-engine/pkg/metrics"
	"github.com/privya-inc/privya-engine/pkg/models"
)

const defaultSubscriberBuffer = 64

// Subscription is one reader of the scan event stream. Events arrive in
// publish order; when a subscriber falls behind its buffer the oldest
// undelivered events are dropped, never the producer blocked.
type Subscription struct {
	id     uint64
	jobID  *uuid.UUID // nil subscribes to every job
	events chan models.ScanEvent
}

// Events is the receive side of the subscription. The channel closes when
// the subscription is cancelled or the hub shuts down.
func (s *Subscription) Events() <-chan models.ScanEvent {
	return s.events
}

// Hub fans scan events out to subscribers. Single writer, many readers.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a reader. A nil jobID receives events for all jobs.
func (h *Hub) Subscribe(jobID *uuid.UUID) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		id:     h.nextID,
		jobID:  jobID,
		events: make(chan models.ScanEvent, defaultSubscriberBuffer),
	}
	h.nextID++
	if h.closed {
		close(sub.events)
		return sub
	}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the reader and closes its channel. Safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		close(sub.events)
	}
}

// Publish delivers the event to every matching subscriber without blocking.
// A full subscriber queue drops its oldest event to make room.
func (h *Hub) Publish(event models.ScanEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	for _, sub := range h.subs {
		if sub.jobID != nil && *sub.jobID != event.JobID {
			continue
		}
		for {
			select {
			case sub.events <- event:
			default:
				select {
				case <-sub.events:
					metrics.EventsDropped.Inc()
				default:
				}
				continue
			}
			break
		}
	}
}

// Close shuts the hub down and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.events)
	}
}
