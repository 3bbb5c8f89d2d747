// Package notify keeps the local notification log and the badge-count signal.
package notify

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgdiegogallo/mensajeria/internal/queue"
)

// Notification summarizes one inbound message from another party.
type Notification struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channelId"`
	ChannelName string    `json:"channelName"`
	Sender      string    `json:"sender"`
	Body        string    `json:"body"`
	RawTime     string    `json:"rawTime"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// QueueID satisfies queue.Item.
func (n Notification) QueueID() string { return n.ID }

// Sink appends inbound-message summaries to a durable log and signals badge
// counts to subscribers. Conversation loads re-derive their view on every
// poll and re-emit everything they see, so the sink dedupes within the
// process session by (channel, sender, body, raw time).
type Sink struct {
	store *queue.Durable[Notification]

	mu   sync.Mutex
	seen map[string]struct{}
	subs map[int]chan int
	next int
}

// NewSink builds a sink persisted at path and loads the existing log.
func NewSink(path string) *Sink {
	store := queue.NewDurable[Notification](path)
	store.Load()
	return &Sink{
		store: store,
		seen:  make(map[string]struct{}),
		subs:  make(map[int]chan int),
	}
}

// Notify records one inbound-message summary. Repeats of a summary already
// seen this session are dropped.
func (s *Sink) Notify(n Notification) {
	key := n.ChannelID + "\x00" + n.Sender + "\x00" + n.Body + "\x00" + n.RawTime

	s.mu.Lock()
	if _, dup := s.seen[key]; dup {
		s.mu.Unlock()
		return
	}
	s.seen[key] = struct{}{}
	s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = time.Now()
	}
	if err := s.store.Enqueue(n); err != nil {
		log.Printf("[notify] persist notification failed: %v", err)
	}

	s.broadcast()
}

// Notifications returns the persisted log, oldest first.
func (s *Sink) Notifications() []Notification {
	return s.store.Items()
}

// Count reports the current badge count.
func (s *Sink) Count() int {
	return s.store.Len()
}

// Clear empties the log and resets the badge count.
func (s *Sink) Clear() {
	for _, n := range s.store.Items() {
		s.store.RemoveByID(n.ID)
	}
	s.broadcast()
}

// Subscribe registers a badge-count listener. The returned cancel func must
// be called when the listener goes away.
func (s *Sink) Subscribe() (<-chan int, func()) {
	ch := make(chan int, 8)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Sink) broadcast() {
	count := s.store.Len()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- count:
		default:
			// Slow subscriber keeps only the counts it can drain.
		}
	}
}
