package initiative

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrAlreadyTracking rejects starting combat in a channel that has an active
// tracker.
var ErrAlreadyTracking = errors.New("initiative tracking is already active in this channel")

// ErrNoCombat signals a combat command in a channel without a tracker.
var ErrNoCombat = errors.New("combat has not been started in this channel")

// Manager owns the channel → tracker map and serializes tracker access per
// call. Trackers themselves are single-threaded.
type Manager struct {
	mu       sync.Mutex
	trackers map[int64]*Tracker
	rng      *rand.Rand
}

// NewManager returns an empty manager. The rng seeds each tracker's d100
// rolls; pass nil for a clock-seeded source.
func NewManager(rng *rand.Rand) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{trackers: make(map[int64]*Tracker), rng: rng}
}

// Start opens combat tracking in a channel.
func (m *Manager) Start(channel int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trackers[channel]; ok {
		return ErrAlreadyTracking
	}
	m.trackers[channel] = NewTracker(m.rng)
	return nil
}

// End closes combat tracking in a channel. Returns false when none was open.
func (m *Manager) End(channel int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trackers[channel]; !ok {
		return false
	}
	delete(m.trackers, channel)
	return true
}

// With runs fn against the channel's tracker under the manager lock.
func (m *Manager) With(channel int64, fn func(*Tracker) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trackers[channel]
	if !ok {
		return ErrNoCombat
	}
	return fn(t)
}
