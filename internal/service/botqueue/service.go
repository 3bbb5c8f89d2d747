// Package botqueue owns the durable queue of pending bot replies. Each entry
// gets exactly one completion call and one write attempt; there are no
// retries in either direction. This is an accepted at-most-once contract, not
// a reliability guarantee.
package botqueue

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dgdiegogallo/mensajeria/internal/model/message"
	"github.com/dgdiegogallo/mensajeria/internal/queue"
	"github.com/dgdiegogallo/mensajeria/internal/service/ai"
	"github.com/dgdiegogallo/mensajeria/internal/service/poll"
	"github.com/dgdiegogallo/mensajeria/internal/service/schedule"
	"github.com/dgdiegogallo/mensajeria/internal/store"
	"github.com/dgdiegogallo/mensajeria/internal/timeutil"
)

var ErrMissingFields = errors.New("channel, bot and user message are required")

// PendingReply is one queued bot reply, paired with a scheduled user send.
type PendingReply struct {
	ID             string    `json:"id"`
	ChannelID      string    `json:"channelId"`
	UserBody       string    `json:"userBody"`
	BotName        string    `json:"botName"`
	BotPrompt      string    `json:"botPrompt"`
	DueAt          time.Time `json:"dueAt"`
	AskerFirstName string    `json:"askerNombre"`
	AskerLastName  string    `json:"askerApellido"`
}

// QueueID satisfies queue.Item.
func (r PendingReply) QueueID() string { return r.ID }

// Service processes pending bot replies on its own cadence, independent of
// the plain send queue so one queue's call latency never delays the other.
type Service struct {
	queue     *queue.Durable[PendingReply]
	store     store.ChannelStore
	responder ai.Responder
	now       func() time.Time
	tick      time.Duration
}

// NewService builds the bot reply service.
func NewService(q *queue.Durable[PendingReply], channelStore store.ChannelStore, responder ai.Responder) *Service {
	q.Load()
	return &Service{
		queue:     q,
		store:     channelStore,
		responder: responder,
		now:       time.Now,
		tick:      schedule.DefaultTick,
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

// Enqueue validates and persists a pending reply.
func (s *Service) Enqueue(reply PendingReply) (PendingReply, error) {
	if reply.ChannelID == "" || reply.BotName == "" || reply.UserBody == "" || reply.DueAt.IsZero() {
		return PendingReply{}, ErrMissingFields
	}
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	if err := s.queue.Enqueue(reply); err != nil {
		return PendingReply{}, err
	}
	return reply, nil
}

// EnqueueForSend derives the paired reply from an accepted bot-augmented
// scheduled send. It satisfies schedule.ReplyQueue.
func (s *Service) EnqueueForSend(send schedule.ScheduledSend) error {
	_, err := s.Enqueue(PendingReply{
		ID:             send.ID,
		ChannelID:      send.ChannelID,
		UserBody:       send.Body,
		BotName:        send.BotName,
		BotPrompt:      send.BotPrompt,
		DueAt:          send.DueAt,
		AskerFirstName: send.AuthorFirstName,
		AskerLastName:  send.AuthorLastName,
	})
	return err
}

// CancelForSend drops the reply paired with a cancelled scheduled send. It
// satisfies schedule.ReplyQueue.
func (s *Service) CancelForSend(id string) bool {
	return s.queue.RemoveByID(id)
}

// Pending returns the queued replies, for display.
func (s *Service) Pending() []PendingReply {
	return s.queue.Items()
}

// Tick processes every due reply: one instruction, one completion call, one
// write on success. The entry leaves the queue whatever happens; a failed
// reply is dropped with a log line and no replacement message.
func (s *Service) Tick(ctx context.Context, now time.Time) {
	for _, reply := range s.queue.Items() {
		if reply.DueAt.After(now) {
			continue
		}
		s.process(ctx, reply)
		s.queue.RemoveByID(reply.ID)
	}
}

// Run ticks once immediately and then on the fixed cadence until ctx ends.
func (s *Service) Run(ctx context.Context) {
	log.Printf("[botqueue] queue started, pending=%d", s.queue.Len())
	s.Tick(ctx, s.now())

	stop := poll.RunEvery(s.tick, func() { s.Tick(ctx, s.now()) })
	<-ctx.Done()
	stop()
	log.Print("[botqueue] queue stopped")
}

func (s *Service) process(ctx context.Context, reply PendingReply) {
	asker := message.DisplayName(reply.AskerFirstName, reply.AskerLastName)
	instruction := ai.BuildInstruction(reply.BotName, reply.BotPrompt, asker, reply.UserBody)

	answer, err := s.responder.Reply(ctx, instruction)
	if err != nil {
		log.Printf("[botqueue] completion for reply %s failed, entry dropped: %v", reply.ID, err)
		return
	}

	// The reply carries the same due-time display timestamp as its paired
	// user message so the two stay adjacent in the ordered view even though
	// they land in two separate writes.
	entry := message.Entry{
		SenderInfo: message.SenderInfo{
			FirstName:   reply.BotName,
			DisplayTime: timeutil.FormatDisplay(reply.DueAt),
		},
		Body: answer,
	}

	if err := store.AppendMessages(ctx, s.store, reply.ChannelID, entry); err != nil {
		log.Printf("[botqueue] persisting reply %s to channel %s failed, entry dropped: %v", reply.ID, reply.ChannelID, err)
		return
	}
	log.Printf("[botqueue] delivered reply %s from bot %q to channel %s", reply.ID, reply.BotName, reply.ChannelID)
}
