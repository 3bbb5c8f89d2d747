// Package conversation reconciles a channel's raw content list into the
// ordered, role-aware view the client renders.
package conversation

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/dgdiegogallo/mensajeria/internal/model/message"
	"github.com/dgdiegogallo/mensajeria/internal/notify"
	"github.com/dgdiegogallo/mensajeria/internal/store"
	"github.com/dgdiegogallo/mensajeria/internal/timeutil"
)

// Notifier receives one summary per inbound message observed during a load.
// Loads are re-derived on every poll cycle, so implementations must dedupe
// repeats themselves.
type Notifier interface {
	Notify(n notify.Notification)
}

// Service loads and classifies channel conversations.
type Service struct {
	store    store.ChannelStore
	notifier Notifier
	now      func() time.Time
}

// NewService builds the conversation service. notifier may be nil.
func NewService(channelStore store.ChannelStore, notifier Notifier) *Service {
	return &Service{store: channelStore, notifier: notifier, now: time.Now}
}

// WithClock overrides the classification clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Load fetches and reconciles the channel's message list for the viewer.
//
// Decode problems degrade to an empty list. A backend read failure also
// yields an empty list together with the error so the caller can log it; the
// next poll cycle is the retry.
func (s *Service) Load(ctx context.Context, channelID string, viewer message.Viewer) ([]message.Normalized, error) {
	record, err := s.store.Fetch(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load channel %s: %w", channelID, err)
	}

	entries := message.DecodeContent(record.Content)
	now := s.now()

	channelName := record.Name
	if channelName == "" {
		channelName = channelID
	}

	normalized := make([]message.Normalized, 0, len(entries))
	for i, entry := range entries {
		instant := timeutil.ToInstantAt(entry.SenderInfo.DisplayTime, now)
		msg := message.Normalized{
			ID:                message.RenderID(channelID, i),
			Sender:            message.Sender{Key: message.SenderKey(entry.SenderInfo.FirstName, entry.SenderInfo.LastName), DisplayName: message.DisplayName(entry.SenderInfo.FirstName, entry.SenderInfo.LastName)},
			Body:              entry.Body,
			Instant:           instant,
			RawDisplayTime:    entry.SenderInfo.DisplayTime,
			IsOwn:             viewer.Owns(entry.SenderInfo),
			IsFutureScheduled: instant.After(now),
		}

		// Not-yet-due scheduled entries stay hidden from everyone except
		// the company role, their author included.
		if msg.IsFutureScheduled && !viewer.Elevated() {
			continue
		}

		normalized = append(normalized, msg)

		if !msg.IsOwn && s.notifier != nil {
			s.notifier.Notify(notify.Notification{
				ChannelID:   channelID,
				ChannelName: channelName,
				Sender:      msg.Sender.DisplayName,
				Body:        msg.Body,
				RawTime:     msg.RawDisplayTime,
			})
		}
	}

	// Ascending by instant; the stable sort keeps original array order for
	// ties since entries carry no other ordering key.
	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Instant.Before(normalized[j].Instant)
	})

	return normalized, nil
}

// Send appends an interactive message authored by the viewer, stamped with
// the current time in display format.
func (s *Service) Send(ctx context.Context, channelID string, viewer message.Viewer, body string) (message.Entry, error) {
	entry := message.Entry{
		SenderInfo: message.SenderInfo{
			FirstName:   viewer.FirstName,
			LastName:    viewer.LastName,
			DisplayTime: timeutil.FormatDisplay(s.now()),
		},
		Body: body,
	}

	if err := store.AppendMessages(ctx, s.store, channelID, entry); err != nil {
		log.Printf("[sync] send to channel %s failed: %v", channelID, err)
		return message.Entry{}, err
	}
	return entry, nil
}
