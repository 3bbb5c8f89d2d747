package schedule

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgdiegogallo/mensajeria/internal/model/channel"
	"github.com/dgdiegogallo/mensajeria/internal/model/message"
	"github.com/dgdiegogallo/mensajeria/internal/queue"
	"github.com/dgdiegogallo/mensajeria/internal/store"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.Local)

type recordedAppend struct {
	channelID string
	msg       message.Normalized
}

type fakeViews struct {
	appended []recordedAppend
	open     bool
}

func (f *fakeViews) AppendLocal(channelID string, msg message.Normalized) bool {
	if !f.open {
		return false
	}
	f.appended = append(f.appended, recordedAppend{channelID, msg})
	return true
}

type fakeReplies struct {
	paired []ScheduledSend
}

func (f *fakeReplies) EnqueueForSend(send ScheduledSend) error {
	f.paired = append(f.paired, send)
	return nil
}

func (f *fakeReplies) CancelForSend(id string) bool {
	for i, send := range f.paired {
		if send.ID == id {
			f.paired = append(f.paired[:i], f.paired[i+1:]...)
			return true
		}
	}
	return false
}

func newTestService(t *testing.T, views LiveViews, replies ReplyQueue) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(channel.Record{ID: "general", Name: "General", Content: json.RawMessage(`[]`)})
	q := queue.NewDurable[ScheduledSend](filepath.Join(t.TempDir(), "schedule.json"))
	svc := NewService(q, mem, replies, views).WithClock(func() time.Time { return testNow })
	return svc, mem
}

func plainSend(due time.Time) ScheduledSend {
	return ScheduledSend{
		ChannelID:       "general",
		Body:            "recordatorio",
		DueAt:           due,
		AuthorFirstName: "Ana",
		AuthorLastName:  "Lee",
	}
}

func TestEnqueueRejectsPastDue(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	if _, err := svc.Enqueue(plainSend(testNow)); err != ErrDueInPast {
		t.Fatalf("expected ErrDueInPast for dueAt == now, got %v", err)
	}
	if _, err := svc.Enqueue(plainSend(testNow.Add(-time.Minute))); err != ErrDueInPast {
		t.Fatalf("expected ErrDueInPast, got %v", err)
	}
	if _, err := svc.Enqueue(plainSend(testNow.Add(time.Second))); err != nil {
		t.Fatalf("expected barely-future send accepted, got %v", err)
	}
}

func TestEnqueueRejectsBotSendInsideLeadTime(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	send := plainSend(testNow.Add(30 * time.Second))
	send.BotName = "Soporte"
	send.BotPrompt = "be helpful"
	if _, err := svc.Enqueue(send); err != ErrBotLeadTime {
		t.Fatalf("expected ErrBotLeadTime, got %v", err)
	}

	send.DueAt = testNow.Add(BotLeadTime)
	if _, err := svc.Enqueue(send); err != nil {
		t.Fatalf("expected send at exactly one minute accepted, got %v", err)
	}
}

func TestEnqueueRejectsMissingFields(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	for _, send := range []ScheduledSend{
		{Body: "x", DueAt: testNow.Add(time.Hour)},
		{ChannelID: "general", DueAt: testNow.Add(time.Hour)},
		{ChannelID: "general", Body: "x"},
		{ChannelID: "general", Body: "x", DueAt: testNow.Add(time.Hour), BotName: "Soporte"},
	} {
		if _, err := svc.Enqueue(send); err != ErrMissingFields {
			t.Fatalf("expected ErrMissingFields for %+v, got %v", send, err)
		}
	}
}

func TestEnqueuePairsBotReply(t *testing.T) {
	replies := &fakeReplies{}
	svc, _ := newTestService(t, nil, replies)

	send := plainSend(testNow.Add(time.Hour))
	send.BotName = "Soporte"
	send.BotPrompt = "be helpful"
	accepted, err := svc.Enqueue(send)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if len(replies.paired) != 1 || replies.paired[0].ID != accepted.ID {
		t.Fatalf("expected paired reply for the accepted send, got %+v", replies.paired)
	}
}

func TestCancelDropsPairedBotReply(t *testing.T) {
	replies := &fakeReplies{}
	svc, _ := newTestService(t, nil, replies)

	send := plainSend(testNow.Add(time.Hour))
	send.BotName = "Soporte"
	send.BotPrompt = "be helpful"
	accepted, err := svc.Enqueue(send)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if !svc.Cancel(accepted.ID) {
		t.Fatal("expected cancel to succeed")
	}
	if len(replies.paired) != 0 {
		t.Fatalf("paired bot reply must go with its send, still queued: %+v", replies.paired)
	}

	// A second cancel finds nothing and must not touch the reply queue again.
	if svc.Cancel(accepted.ID) {
		t.Fatal("expected repeated cancel to report missing")
	}
}

func TestTickDeliversDueEntriesExactlyOnce(t *testing.T) {
	svc, mem := newTestService(t, nil, nil)

	if _, err := svc.Enqueue(plainSend(testNow.Add(90 * time.Second))); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// Before the due time the tick is a no-op.
	svc.Tick(context.Background(), testNow)
	if got := len(svc.Pending()); got != 1 {
		t.Fatalf("expected 1 pending entry, got %d", got)
	}

	svc.Tick(context.Background(), testNow.Add(100*time.Second))
	if got := len(svc.Pending()); got != 0 {
		t.Fatalf("expected empty queue after delivery, got %d", got)
	}

	record, _ := mem.Fetch(context.Background(), "general")
	entries := message.DecodeContent(record.Content)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(entries))
	}
	if entries[0].SenderInfo.DisplayTime != "15/03/2024, 12:01" {
		t.Fatalf("expected due-time-derived display time, got %q", entries[0].SenderInfo.DisplayTime)
	}
	if entries[0].Body != "recordatorio" {
		t.Fatalf("unexpected body %q", entries[0].Body)
	}

	// A later tick must not deliver again.
	svc.Tick(context.Background(), testNow.Add(time.Hour))
	record, _ = mem.Fetch(context.Background(), "general")
	if got := len(message.DecodeContent(record.Content)); got != 1 {
		t.Fatalf("expected no re-delivery, got %d entries", got)
	}
}

func TestTickDeliversLateEntries(t *testing.T) {
	svc, mem := newTestService(t, nil, nil)

	send, _ := svc.Enqueue(plainSend(testNow.Add(time.Minute)))

	// Observed well past its window: deliver-when-next-observed, no discard.
	svc.Tick(context.Background(), testNow.Add(24*time.Hour))

	record, _ := mem.Fetch(context.Background(), "general")
	if got := len(message.DecodeContent(record.Content)); got != 1 {
		t.Fatalf("expected late entry delivered, got %d entries", got)
	}
	if svc.Cancel(send.ID) {
		t.Fatal("entry should already be gone from the queue")
	}
}

func TestTickRemovesEntryEvenWhenDeliveryFails(t *testing.T) {
	mem := store.NewMemory() // channel does not exist, append will fail
	q := queue.NewDurable[ScheduledSend](filepath.Join(t.TempDir(), "schedule.json"))
	svc := NewService(q, mem, nil, nil).WithClock(func() time.Time { return testNow })

	svc.Enqueue(plainSend(testNow.Add(time.Minute)))
	svc.Tick(context.Background(), testNow.Add(2*time.Minute))

	if got := len(svc.Pending()); got != 0 {
		t.Fatalf("failed delivery must still leave the queue, got %d pending", got)
	}
}

func TestTickAppendsOptimisticEntryToOpenView(t *testing.T) {
	views := &fakeViews{open: true}
	svc, _ := newTestService(t, views, nil)

	svc.Enqueue(plainSend(testNow.Add(time.Minute)))
	svc.Tick(context.Background(), testNow.Add(2*time.Minute))

	if len(views.appended) != 1 {
		t.Fatalf("expected 1 optimistic append, got %d", len(views.appended))
	}
	got := views.appended[0]
	if got.channelID != "general" || !got.msg.IsOwn || got.msg.Body != "recordatorio" {
		t.Fatalf("unexpected optimistic entry: %+v", got)
	}
}

func TestQueueSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	mem := store.NewMemory(channel.Record{ID: "general", Content: json.RawMessage(`[]`)})

	first := NewService(queue.NewDurable[ScheduledSend](path), mem, nil, nil).WithClock(func() time.Time { return testNow })
	first.Enqueue(plainSend(testNow.Add(time.Hour)))

	second := NewService(queue.NewDurable[ScheduledSend](path), mem, nil, nil).WithClock(func() time.Time { return testNow })
	if got := len(second.Pending()); got != 1 {
		t.Fatalf("expected persisted entry after restart, got %d", got)
	}
}
