// Package schedule owns the durable queue of future-dated sends. There is no
// server-side scheduler; a fixed-interval tick over locally persisted entries
// is the only delivery mechanism, so the tick cadence is the scheduling
// resolution.
package schedule

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dgdiegogallo/mensajeria/internal/model/message"
	"github.com/dgdiegogallo/mensajeria/internal/queue"
	"github.com/dgdiegogallo/mensajeria/internal/service/poll"
	"github.com/dgdiegogallo/mensajeria/internal/store"
	"github.com/dgdiegogallo/mensajeria/internal/timeutil"
)

var (
	ErrMissingFields = errors.New("channel, body and due time are required")
	ErrDueInPast     = errors.New("due time must be in the future")
	ErrBotLeadTime   = errors.New("bot-augmented sends need at least one minute of lead time")
)

// BotLeadTime is the minimum scheduling distance for a bot-augmented send,
// one full tick so the paired reply never races its own user message.
const BotLeadTime = time.Minute

// DefaultTick is the queue scan cadence. Entries due at second precision may
// deliver up to one tick late.
const DefaultTick = time.Minute

// ScheduledSend is one queued future send. ID is client-generated and stable
// for the entry's lifetime, unlike message identity in channel content.
type ScheduledSend struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channelId"`
	Body            string    `json:"body"`
	DueAt           time.Time `json:"dueAt"`
	AuthorFirstName string    `json:"authorNombre"`
	AuthorLastName  string    `json:"authorApellido"`
	BotName         string    `json:"botName,omitempty"`
	BotPrompt       string    `json:"botPrompt,omitempty"`
}

// QueueID satisfies queue.Item.
func (s ScheduledSend) QueueID() string { return s.ID }

// HasBot reports whether a bot reply is paired with this send.
func (s ScheduledSend) HasBot() bool { return s.BotName != "" }

// ReplyQueue receives the paired pending bot reply when a bot-augmented send
// is accepted, and drops it again if the send is cancelled before firing.
type ReplyQueue interface {
	EnqueueForSend(send ScheduledSend) error
	CancelForSend(id string) bool
}

// LiveViews pushes optimistic entries into an open conversation view.
type LiveViews interface {
	AppendLocal(channelID string, msg message.Normalized) bool
}

// Service validates, persists and delivers scheduled sends.
type Service struct {
	queue   *queue.Durable[ScheduledSend]
	store   store.ChannelStore
	replies ReplyQueue
	views   LiveViews
	now     func() time.Time
	tick    time.Duration
}

// NewService builds the schedule service. replies and views may be nil.
func NewService(q *queue.Durable[ScheduledSend], channelStore store.ChannelStore, replies ReplyQueue, views LiveViews) *Service {
	q.Load()
	return &Service{
		queue:   q,
		store:   channelStore,
		replies: replies,
		views:   views,
		now:     time.Now,
		tick:    DefaultTick,
	}
}

// WithClock overrides the clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithTick overrides the scan cadence.
func (s *Service) WithTick(tick time.Duration) *Service {
	if tick > 0 {
		s.tick = tick
	}
	return s
}

// Enqueue validates and persists a future send. No network call happens here;
// delivery belongs to the tick. Bot-augmented sends also queue their paired
// reply.
func (s *Service) Enqueue(send ScheduledSend) (ScheduledSend, error) {
	if send.ChannelID == "" || send.Body == "" || send.DueAt.IsZero() {
		return ScheduledSend{}, ErrMissingFields
	}
	if send.HasBot() && send.BotPrompt == "" {
		return ScheduledSend{}, ErrMissingFields
	}

	now := s.now()
	if send.HasBot() {
		if send.DueAt.Before(now.Add(BotLeadTime)) {
			return ScheduledSend{}, ErrBotLeadTime
		}
	} else if !send.DueAt.After(now) {
		return ScheduledSend{}, ErrDueInPast
	}

	if send.ID == "" {
		send.ID = uuid.NewString()
	}

	if err := s.queue.Enqueue(send); err != nil {
		return ScheduledSend{}, err
	}

	if send.HasBot() && s.replies != nil {
		if err := s.replies.EnqueueForSend(send); err != nil {
			log.Printf("[schedule] pairing bot reply for send %s failed: %v", send.ID, err)
		}
	}

	return send, nil
}

// Pending returns the queued sends, for display.
func (s *Service) Pending() []ScheduledSend {
	return s.queue.Items()
}

// Cancel removes a queued send before it fires. A bot-augmented send takes
// its paired reply with it; a bot must never answer a message that was never
// delivered.
func (s *Service) Cancel(id string) bool {
	if !s.queue.RemoveByID(id) {
		return false
	}
	if s.replies != nil && s.replies.CancelForSend(id) {
		log.Printf("[schedule] cancelled paired bot reply for send %s", id)
	}
	return true
}

// Tick delivers every entry whose due time has passed. Each due entry gets
// exactly one delivery attempt and leaves the queue whichever way the attempt
// went; an entry found late still delivers, there is no missed-window
// discard.
func (s *Service) Tick(ctx context.Context, now time.Time) {
	for _, send := range s.queue.Items() {
		if send.DueAt.After(now) {
			continue
		}
		s.deliver(ctx, send)
		s.queue.RemoveByID(send.ID)
	}
}

// Run ticks once immediately and then on the fixed cadence until ctx ends.
func (s *Service) Run(ctx context.Context) {
	log.Printf("[schedule] queue started, pending=%d", s.queue.Len())
	s.Tick(ctx, s.now())

	stop := poll.RunEvery(s.tick, func() { s.Tick(ctx, s.now()) })
	<-ctx.Done()
	stop()
	log.Print("[schedule] queue stopped")
}

func (s *Service) deliver(ctx context.Context, send ScheduledSend) {
	// The stored display time is derived from the scheduled due time, not the
	// delivery wall clock, so the visible timestamp matches what was booked.
	displayTime := timeutil.FormatDisplay(send.DueAt)
	entry := message.Entry{
		SenderInfo: message.SenderInfo{
			FirstName:   send.AuthorFirstName,
			LastName:    send.AuthorLastName,
			DisplayTime: displayTime,
		},
		Body: send.Body,
	}

	if err := store.AppendMessages(ctx, s.store, send.ChannelID, entry); err != nil {
		// At-most-once: the entry is gone after this tick. Losses are visible
		// only here, so keep the line informative.
		log.Printf("[schedule] delivery of send %s to channel %s failed, entry dropped: %v", send.ID, send.ChannelID, err)
		return
	}

	log.Printf("[schedule] delivered send %s to channel %s", send.ID, send.ChannelID)

	if s.views != nil {
		s.views.AppendLocal(send.ChannelID, message.Normalized{
			ID:             "scheduled:" + send.ID,
			Sender:         message.Sender{Key: message.SenderKey(send.AuthorFirstName, send.AuthorLastName), DisplayName: message.DisplayName(send.AuthorFirstName, send.AuthorLastName)},
			Body:           send.Body,
			Instant:        send.DueAt,
			RawDisplayTime: displayTime,
			IsOwn:          true,
		})
	}
}
