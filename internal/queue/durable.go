// Package queue provides the file-backed queues behind scheduled and bot
// sends. Each queue is one JSON document under the data directory, loaded
// once at startup and rewritten in full on every mutation. Persistence is
// last-writer-wins; two processes sharing a data directory will race, which
// is an accepted limitation rather than a supported deployment.
package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Item is anything a durable queue can hold. The identifier must be stable
// for the entry's whole lifetime.
type Item interface {
	QueueID() string
}

type document[T Item] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

// Durable is a persisted FIFO of queue items.
type Durable[T Item] struct {
	path string

	mu     sync.Mutex
	items  []T
	loaded bool
}

// NewDurable returns a queue persisted at path. Call Load before use.
func NewDurable[T Item](path string) *Durable[T] {
	return &Durable[T]{path: path}
}

// Load reads the persisted document. A missing or unreadable file starts the
// queue empty; queue state is best-effort local storage, not a ledger.
func (q *Durable[T]) Load() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.loaded {
		return
	}
	q.loaded = true

	data, err := os.ReadFile(q.path)
	if err != nil {
		q.items = nil
		return
	}

	var doc document[T]
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("[queue] discarding unreadable store %s: %v", q.path, err)
		q.items = nil
		return
	}
	q.items = doc.Items
}

// Enqueue appends an item and persists the whole queue.
func (q *Durable[T]) Enqueue(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return q.saveLocked()
}

// RemoveByID deletes the item with the given identifier and persists. It
// reports whether anything was removed.
func (q *Durable[T]) RemoveByID(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := false
	for _, item := range q.items {
		if item.QueueID() == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept

	if removed {
		if err := q.saveLocked(); err != nil {
			log.Printf("[queue] persist after remove failed: %v", err)
		}
	}
	return removed
}

// Items returns a snapshot of the current queue contents.
func (q *Durable[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	snapshot := make([]T, len(q.items))
	copy(snapshot, q.items)
	return snapshot
}

// Len reports the number of queued items.
func (q *Durable[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Durable[T]) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}

	data, err := json.MarshalIndent(document[T]{Version: 1, Items: q.items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := os.WriteFile(q.path, data, 0o644); err != nil {
		return fmt.Errorf("write queue: %w", err)
	}
	return nil
}
