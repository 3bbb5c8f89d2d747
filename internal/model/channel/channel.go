// Package channel models the backend's per-channel record.
package channel

import "encoding/json"

// Bot is one automated responder attached to a channel. The prompt template
// is embedded verbatim into the instruction sent to the completion model.
type Bot struct {
	Prompt string `json:"prompt"`
}

// Record is the channel document as fetched from the backend. Content is kept
// raw here; message.DecodeContent is the only place allowed to interpret it.
type Record struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Bots    map[string]Bot  `json:"botRegistry"`
	Content json.RawMessage `json:"content"`
}

// BotNames lists the registry keys. Names are unique within a channel by
// construction since the registry is a map keyed on display name.
func (r Record) BotNames() []string {
	names := make([]string, 0, len(r.Bots))
	for name := range r.Bots {
		names = append(names, name)
	}
	return names
}
