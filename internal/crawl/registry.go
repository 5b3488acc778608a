package crawl

import (
	"errors"
	"sync"
)

// ErrAlreadyActive rejects starting a second crawl in a channel that has one.
var ErrAlreadyActive = errors.New("a dungeon crawl is already active in this channel")

// Registry owns the channel → session map and enforces at-most-one active
// crawl per channel. The map itself is guarded; each session serializes its
// own handlers, so different channels progress concurrently.
type Registry struct {
	mu       sync.RWMutex
	sessions map[ChannelID]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[ChannelID]*Session)}
}

// Start creates, registers and announces a new crawl session. It fails with
// ErrAlreadyActive, leaving the existing session untouched, when the channel
// already has one.
func (r *Registry) Start(cfg Config) (*Session, error) {
	r.mu.Lock()
	if _, exists := r.sessions[cfg.Channel]; exists {
		r.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	s, err := NewSession(cfg)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.sessions[cfg.Channel] = s
	r.mu.Unlock()

	if err := s.Begin(); err != nil {
		return s, err
	}
	return s, nil
}

// Lookup returns the channel's active session, if any.
func (r *Registry) Lookup(channel ChannelID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[channel]
	return s, ok
}

// OnMessage routes a chat message to the channel's session. Channels without
// a session swallow the event.
func (r *Registry) OnMessage(channel ChannelID, author PlayerID) error {
	s, ok := r.Lookup(channel)
	if !ok {
		return nil
	}
	err := s.HandleMessage(author)
	r.reapIfEnded(channel, s)
	return err
}

// OnReaction routes a reaction-add event to the channel's session.
func (r *Registry) OnReaction(channel ChannelID, msg MessageID, author PlayerID, symbol string) error {
	s, ok := r.Lookup(channel)
	if !ok {
		return nil
	}
	err := s.HandleReaction(msg, author, symbol)
	r.reapIfEnded(channel, s)
	return err
}

// Terminate ends and deregisters the channel's session. Returns false when
// there was none.
func (r *Registry) Terminate(channel ChannelID) (bool, error) {
	s, ok := r.Lookup(channel)
	if !ok {
		return false, nil
	}
	err := s.Terminate()
	r.reapIfEnded(channel, s)
	return true, err
}

// reapIfEnded removes a finished session. Deregistration is atomic with
// respect to the map, so no events can reach a dead session.
func (r *Registry) reapIfEnded(channel ChannelID, s *Session) {
	if s.Phase() != PhaseEnded {
		return
	}
	r.mu.Lock()
	if r.sessions[channel] == s {
		delete(r.sessions, channel)
	}
	r.mu.Unlock()
}
