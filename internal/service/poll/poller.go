// Package poll keeps open conversation views fresh by re-loading them on a
// fixed interval and replacing the displayed list wholesale. Entries carry no
// stable identity across fetches, so there is no diffing; a full reload is
// the reconciliation.
package poll

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dgdiegogallo/mensajeria/internal/model/message"
)

// Loader produces the reconciled view of a channel for a viewer.
type Loader interface {
	Load(ctx context.Context, channelID string, viewer message.Viewer) ([]message.Normalized, error)
}

// Poller owns the live sessions, one per open channel.
type Poller struct {
	loader   Loader
	interval time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds a poller re-loading every interval.
func New(loader Loader, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		loader:   loader,
		interval: interval,
		sessions: make(map[string]*Session),
	}
}

// Open starts (or restarts) the polling loop for a channel and returns its
// live session. Opening a channel that already has a session closes the old
// one first; switching channels never cancels queue deliveries, only the view.
func (p *Poller) Open(ctx context.Context, channelID string, viewer message.Viewer) *Session {
	session := &Session{
		channelID: channelID,
		viewer:    viewer,
		updates:   make(chan struct{}, 1),
	}
	session.detach = func() { p.forget(session) }

	p.mu.Lock()
	old := p.sessions[channelID]
	p.sessions[channelID] = session
	p.mu.Unlock()
	if old != nil {
		old.Close()
	}

	refresh := func() {
		msgs, err := p.loader.Load(ctx, channelID, viewer)
		if err != nil {
			// Surface an empty view; the next cycle is the retry.
			log.Printf("[poll] reload of channel %s failed: %v", channelID, err)
		}
		session.replace(msgs)
	}

	refresh()
	session.attach(RunEvery(p.interval, refresh))
	return session
}

// Lookup returns the live session for a channel, if one is open.
func (p *Poller) Lookup(channelID string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[channelID]
	return s, ok
}

// AppendLocal pushes an optimistic message into the channel's open view, if
// any. It reports whether a view was open.
func (p *Poller) AppendLocal(channelID string, msg message.Normalized) bool {
	session, ok := p.Lookup(channelID)
	if !ok {
		return false
	}
	session.AppendLocal(msg)
	return true
}

// Close stops the session for a channel.
func (p *Poller) Close(channelID string) {
	p.mu.Lock()
	s, ok := p.sessions[channelID]
	if ok {
		delete(p.sessions, channelID)
	}
	p.mu.Unlock()
	if ok {
		s.Close()
	}
}

// forget drops the session from the registry, unless the channel was already
// reopened with a fresh one.
func (p *Poller) forget(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions[s.channelID] == s {
		delete(p.sessions, s.channelID)
	}
}

// Session is one channel's live view.
type Session struct {
	channelID string
	viewer    message.Viewer

	mu         sync.Mutex
	messages   []message.Normalized
	optimistic []message.Normalized
	stopped    bool
	stop       Handle
	detach     func()

	updates chan struct{}
}

// Messages returns the current view: the last reconciled list followed by any
// optimistic entries not yet confirmed by a reload.
func (s *Session) Messages() []message.Normalized {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := make([]message.Normalized, 0, len(s.messages)+len(s.optimistic))
	view = append(view, s.messages...)
	view = append(view, s.optimistic...)
	return view
}

// AppendLocal adds an optimistic entry so the sender gets immediate feedback
// without waiting for the next poll. The entry is superseded wholesale by the
// next reload; it may briefly appear twice around the confirming poll, which
// is accepted over identity heuristics that could hide real duplicates.
func (s *Session) AppendLocal(msg message.Normalized) {
	s.mu.Lock()
	s.optimistic = append(s.optimistic, msg)
	s.mu.Unlock()
	s.signal()
}

// Updates signals whenever the view changed. Receivers read Messages for the
// current state; signals coalesce.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Close stops this channel's polling loop and deregisters the session so
// optimistic appends stop landing in a dead view. In-flight queue entries for
// the channel keep firing in the background.
func (s *Session) Close() {
	s.mu.Lock()
	already := s.stopped
	s.stopLocked()
	s.mu.Unlock()
	if !already && s.detach != nil {
		s.detach()
	}
}

func (s *Session) replace(msgs []message.Normalized) {
	s.mu.Lock()
	s.messages = msgs
	s.optimistic = nil
	s.mu.Unlock()
	s.signal()
}

func (s *Session) signal() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func (s *Session) stopLocked() {
	if s.stopped {
		return
	}
	s.stopped = true
	if s.stop != nil {
		s.stop()
	}
}

// attach hands the session its cancellation handle. If the session was closed
// before the loop started, the loop is stopped right away.
func (s *Session) attach(h Handle) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		h()
		return
	}
	s.stop = h
	s.mu.Unlock()
}
