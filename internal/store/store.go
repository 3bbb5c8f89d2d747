// Package store talks to the backing message store. The backend keeps one
// record per channel and only offers whole-document reads and whole-field
// replaces, so every append is a read-modify-write with a race window between
// concurrent writers that this layer does not attempt to close.
package store

import (
	"context"
	"errors"

	"github.com/dgdiegogallo/mensajeria/internal/model/channel"
	"github.com/dgdiegogallo/mensajeria/internal/model/message"
)

var ErrChannelNotFound = errors.New("channel not found")

// ChannelStore exposes the backend operations the engine needs.
type ChannelStore interface {
	Fetch(ctx context.Context, channelID string) (channel.Record, error)
	ReplaceContent(ctx context.Context, channelID string, entries []message.Entry) error
	ReplaceBots(ctx context.Context, channelID string, bots map[string]channel.Bot) error
}

// AppendMessages performs the read-modify-write append on top of the
// full-replace write API.
func AppendMessages(ctx context.Context, s ChannelStore, channelID string, entries ...message.Entry) error {
	record, err := s.Fetch(ctx, channelID)
	if err != nil {
		return err
	}

	content := message.DecodeContent(record.Content)
	content = append(content, entries...)
	return s.ReplaceContent(ctx, channelID, content)
}
