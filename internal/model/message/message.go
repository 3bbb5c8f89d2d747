// Package message defines the wire and display shapes of channel content.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SenderInfo carries the author fields as the backend stores them. The JSON
// keys are the legacy Spanish column names and must not be renamed.
type SenderInfo struct {
	FirstName   string `json:"nombre"`
	LastName    string `json:"apellido"`
	DisplayTime string `json:"hora"`
}

// Entry is one element of a channel's append-only content list. Entries have
// no identifier field; an entry's index within a single fetch is its only
// positional identity, and that index is not stable across writes.
type Entry struct {
	SenderInfo SenderInfo `json:"senderInfo"`
	Body       string     `json:"message"`
}

// DecodeContent normalizes the loosely typed content field into a typed list.
// The backend stores content either as a JSON array or as a JSON string that
// itself contains the encoded array, depending on which code path last wrote
// the record. Anything undecodable yields an empty list; malformed content
// must never take down a conversation view.
func DecodeContent(raw json.RawMessage) []Entry {
	if len(raw) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &entries); err != nil {
		return nil
	}
	return entries
}

// EncodeContent renders entries back into the array form for a full-replace
// write.
func EncodeContent(entries []Entry) json.RawMessage {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return json.RawMessage("[]")
	}
	return data
}

// Viewer identifies who is looking at a conversation. Role is a free string
// coming from the login record; only RoleCompany unlocks future-scheduled
// entries. These are advisory UI gates, not access control.
type Viewer struct {
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Role      string `json:"role"`
}

// RoleCompany is the elevated company-owner role.
const RoleCompany = "company"

// Elevated reports whether the viewer may see not-yet-due scheduled entries.
func (v Viewer) Elevated() bool {
	return v.Role == RoleCompany
}

// Sender is the display-layer author identity. Key is derived from the name
// pair, so two people with identical names collide; the backend offers no
// user id on content entries, and this approximation is accepted rather than
// papered over.
type Sender struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
}

// Normalized is the display-layer view of one Entry. Instances are rebuilt
// wholesale on every fetch; ID is scoped to a single render and is not a
// durable key.
type Normalized struct {
	ID                string    `json:"id"`
	Sender            Sender    `json:"sender"`
	Body              string    `json:"body"`
	Instant           time.Time `json:"instant"`
	RawDisplayTime    string    `json:"rawDisplayTime"`
	IsOwn             bool      `json:"isOwn"`
	IsFutureScheduled bool      `json:"isFutureScheduled"`
}

// SenderKey derives the collision-prone display key for a name pair.
func SenderKey(firstName, lastName string) string {
	return strings.ToLower(strings.TrimSpace(firstName) + "|" + strings.TrimSpace(lastName))
}

// DisplayName joins the name pair for rendering.
func DisplayName(firstName, lastName string) string {
	return strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
}

// RenderID synthesizes the per-render identifier for an entry at index.
func RenderID(source string, index int) string {
	return fmt.Sprintf("%s:%d", source, index)
}

// Owns reports whether the viewer authored the entry. The comparison is an
// exact, case-sensitive match of both name fields against the viewer profile;
// the content list stores no user id to compare instead.
func (v Viewer) Owns(info SenderInfo) bool {
	return v.FirstName == info.FirstName && v.LastName == info.LastName
}
