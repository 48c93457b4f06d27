package feed

import (
	"sync"
	"sync/atomic"

	"github.com/discentra/discentra/internal/models"
)

// Broadcaster fans out feed snapshots to live subscribers (the SSE stream).
// Each successful refresh publishes the full record list, matching the
// atomic-replacement semantics of FetchState.
type Broadcaster struct {
	subscribers map[uint64]chan []models.DisasterRecord
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan []models.DisasterRecord),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan []models.DisasterRecord) {
	id := b.nextID.Add(1)
	ch := make(chan []models.DisasterRecord, 1)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Publish(records []models.DisasterRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- records:
		default:
			// Skip slow subscribers; they will catch up on the next publish.
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so streams exit gracefully.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
