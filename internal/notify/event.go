// Package notify fans committed document changes out to subscribers.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"questlog/internal/docstore"
)

// Event is the summary of one change entry sent to subscribers. Field values
// are left out; subscribers re-read what they display.
type Event struct {
	ChangeID    uint64         `json:"change_id"`
	Description string         `json:"description"`
	ActorID     string         `json:"actor_id"`
	Keys        []docstore.Key `json:"keys"`
	CreatedAt   time.Time      `json:"created_at"`
}

func EventFromChange(c docstore.Change) Event {
	keys := make([]docstore.Key, 0, len(c.Writes))
	for _, w := range c.Writes {
		keys = append(keys, w.Key)
	}
	return Event{
		ChangeID:    c.ID,
		Description: c.Description,
		ActorID:     c.ActorID,
		Keys:        keys,
		CreatedAt:   c.CreatedAt,
	}
}

const subscriberBuffer = 32

// Hub delivers events to in-process subscribers. A subscriber that falls a
// full buffer behind misses events rather than blocking the others.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
	log  zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs: map[int]chan Event{},
		log:  log.With().Str("component", "notify_hub").Logger(),
	}
}

// Subscribe returns a channel of events and a func that closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *Hub) Broadcast(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.log.Warn().Int("subscriber", id).Uint64("change", e.ChangeID).Msg("subscriber full, event dropped")
		}
	}
}

// Publish lets the hub stand in for a database publisher in a single process.
func (h *Hub) Publish(_ context.Context, c docstore.Change) error {
	h.Broadcast(EventFromChange(c))
	return nil
}
