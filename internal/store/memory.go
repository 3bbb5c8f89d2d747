package store

import (
	"context"
	"sync"

	"github.com/dgdiegogallo/mensajeria/internal/model/channel"
	"github.com/dgdiegogallo/mensajeria/internal/model/message"
)

// Memory implements ChannelStore with an in-process map. It backs tests and
// the standalone mode used when no backend URL is configured.
type Memory struct {
	mu       sync.RWMutex
	channels map[string]channel.Record
}

// NewMemory returns a Memory preloaded with the supplied records.
func NewMemory(records ...channel.Record) *Memory {
	m := &Memory{channels: make(map[string]channel.Record, len(records))}
	for _, r := range records {
		m.channels[r.ID] = r
	}
	return m
}

// Fetch looks up a channel record by identifier.
func (m *Memory) Fetch(_ context.Context, channelID string) (channel.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.channels[channelID]
	if !ok {
		return channel.Record{}, ErrChannelNotFound
	}
	return record, nil
}

// ReplaceContent swaps the full content list for a channel.
func (m *Memory) ReplaceContent(_ context.Context, channelID string, entries []message.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.channels[channelID]
	if !ok {
		return ErrChannelNotFound
	}
	record.Content = message.EncodeContent(entries)
	m.channels[channelID] = record
	return nil
}

// ReplaceBots swaps the full bot registry for a channel.
func (m *Memory) ReplaceBots(_ context.Context, channelID string, bots map[string]channel.Bot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.channels[channelID]
	if !ok {
		return ErrChannelNotFound
	}
	record.Bots = bots
	m.channels[channelID] = record
	return nil
}

// Put inserts or replaces a whole record. Used by tests and seeding.
func (m *Memory) Put(record channel.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[record.ID] = record
}
