package crawl

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suderio/delver/internal/dungeon"
)

type sentMessage struct {
	Channel ChannelID
	Text    string
	Image   string
}

// fakeMessenger records every outbound call for assertions.
type fakeMessenger struct {
	mu        sync.Mutex
	messages  []sentMessage
	reactions map[MessageID][]string
	nextID    MessageID
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{reactions: make(map[MessageID][]string)}
}

func (m *fakeMessenger) SendMessage(channel ChannelID, text, imagePath string) (MessageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.messages = append(m.messages, sentMessage{Channel: channel, Text: text, Image: imagePath})
	return m.nextID, nil
}

func (m *fakeMessenger) AddReactions(channel ChannelID, msg MessageID, symbols []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions[msg] = symbols
	return nil
}

func (m *fakeMessenger) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1].Text
}

func (m *fakeMessenger) lastID() MessageID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextID
}

// fakeSource serves in-memory graphs without store validation, so tests can
// exercise structurally broken floors too.
type fakeSource struct {
	floors map[int]*dungeon.Graph
}

func (f *fakeSource) Load(floor int) (*dungeon.Graph, error) {
	g, ok := f.floors[floor]
	if !ok {
		return nil, fmt.Errorf("%w %d", dungeon.ErrNotFound, floor)
	}
	return g, nil
}

// twoRooms is the smallest useful floor: A(0,0)→Right→B(1,0), B the only
// landable room.
func twoRooms() *dungeon.Graph {
	return &dungeon.Graph{
		Start: "A",
		Rooms: map[dungeon.RoomID]dungeon.Room{
			"A": {ID: "A", X: 0, Y: 0, Ways: []dungeon.Direction{dungeon.Right}},
			"B": {ID: "B", X: 1, Y: 0, Ways: []dungeon.Direction{dungeon.Left}, Landable: true},
		},
	}
}

var (
	anna = Player{ID: 11, Name: "Anna"}
	bert = Player{ID: 22, Name: "Bert"}
)

func startTestCrawl(t *testing.T, reg *Registry, msgr *fakeMessenger, floors map[int]*dungeon.Graph, total int) *Session {
	t.Helper()
	s, err := reg.Start(Config{
		Channel:   100,
		Players:   []Player{anna, bert},
		Floors:    total,
		Source:    &fakeSource{floors: floors},
		Messenger: msgr,
		Rand:      rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	return s
}

func checkInAll(t *testing.T, reg *Registry) {
	t.Helper()
	require.NoError(t, reg.OnMessage(100, anna.ID))
	require.NoError(t, reg.OnMessage(100, bert.ID))
}

func TestCrawlTwoRoomScenario(t *testing.T) {
	reg := NewRegistry()
	msgr := newFakeMessenger()
	s := startTestCrawl(t, reg, msgr, map[int]*dungeon.Graph{1: twoRooms()}, 1)

	require.Equal(t, PhaseCheckIn, s.Phase())
	assert.Contains(t, msgr.lastText(), "Dungeon Crawl Begins")

	// One check-in is not enough; order must not matter either.
	require.NoError(t, reg.OnMessage(100, bert.ID))
	assert.Equal(t, PhaseCheckIn, s.Phase())
	require.NoError(t, reg.OnMessage(100, anna.ID))
	require.Equal(t, PhaseAwaitingVotes, s.Phase())

	// Room A offers only Right; B is the stairs room so no descend here.
	voteMsg := msgr.lastID()
	require.Equal(t, []string{"➡️"}, msgr.reactions[voteMsg])

	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, "➡️"))
	assert.Equal(t, PhaseAwaitingVotes, s.Phase())
	require.NoError(t, reg.OnReaction(100, voteMsg, bert.ID, "➡️"))

	assert.Equal(t, dungeon.RoomID("B"), s.Room())
	assert.Equal(t, PhaseCheckIn, s.Phase())
	assert.Contains(t, msgr.lastText(), "moves *Right*")
}

func TestCrawlVictoryOnLastFloor(t *testing.T) {
	reg := NewRegistry()
	msgr := newFakeMessenger()
	s := startTestCrawl(t, reg, msgr, map[int]*dungeon.Graph{1: twoRooms()}, 1)

	// Walk the party onto B, the stairs room.
	checkInAll(t, reg)
	voteMsg := msgr.lastID()
	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, "➡️"))
	require.NoError(t, reg.OnReaction(100, voteMsg, bert.ID, "➡️"))
	require.Equal(t, dungeon.RoomID("B"), s.Room())

	checkInAll(t, reg)
	voteMsg = msgr.lastID()
	require.Contains(t, msgr.reactions[voteMsg], StairsSymbol)

	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, StairsSymbol))
	require.NoError(t, reg.OnReaction(100, voteMsg, bert.ID, StairsSymbol))

	assert.Equal(t, PhaseEnded, s.Phase())
	assert.Contains(t, msgr.lastText(), "Victory")
	_, stillThere := reg.Lookup(100)
	assert.False(t, stillThere, "victorious session must be deregistered")
}

func TestCrawlDescendsToNextFloor(t *testing.T) {
	reg := NewRegistry()
	msgr := newFakeMessenger()
	s := startTestCrawl(t, reg, msgr, map[int]*dungeon.Graph{1: twoRooms(), 2: twoRooms()}, 2)

	checkInAll(t, reg)
	voteMsg := msgr.lastID()
	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, "➡️"))
	require.NoError(t, reg.OnReaction(100, voteMsg, bert.ID, "➡️"))

	checkInAll(t, reg)
	voteMsg = msgr.lastID()
	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, StairsSymbol))
	require.NoError(t, reg.OnReaction(100, voteMsg, bert.ID, StairsSymbol))

	assert.Equal(t, 2, s.Floor())
	assert.Equal(t, dungeon.RoomID("A"), s.Room(), "party lands on the new floor's start")
	assert.Equal(t, PhaseCheckIn, s.Phase())
	assert.Contains(t, msgr.lastText(), "Descending to floor 2")
}

func TestCrawlMissingNextFloorEndsSession(t *testing.T) {
	reg := NewRegistry()
	msgr := newFakeMessenger()
	s := startTestCrawl(t, reg, msgr, map[int]*dungeon.Graph{1: twoRooms()}, 3)

	checkInAll(t, reg)
	voteMsg := msgr.lastID()
	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, "➡️"))
	require.NoError(t, reg.OnReaction(100, voteMsg, bert.ID, "➡️"))
	checkInAll(t, reg)
	voteMsg = msgr.lastID()
	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, StairsSymbol))
	err := reg.OnReaction(100, voteMsg, bert.ID, StairsSymbol)

	assert.Error(t, err, "missing floor is fatal to the session")
	assert.Equal(t, PhaseEnded, s.Phase())
	_, stillThere := reg.Lookup(100)
	assert.False(t, stillThere)
	assert.Contains(t, msgr.lastText(), "Could not load dungeon for floor 2")
}

func TestCrawlDeadEndEndsSession(t *testing.T) {
	// Room A claims a way Up with no neighbor there; the fake source bypasses
	// store validation, mimicking a hand-authored floor.
	g := twoRooms()
	room := g.Rooms["A"]
	room.Ways = []dungeon.Direction{dungeon.Up}
	g.Rooms["A"] = room

	reg := NewRegistry()
	msgr := newFakeMessenger()
	s := startTestCrawl(t, reg, msgr, map[int]*dungeon.Graph{1: g}, 1)

	checkInAll(t, reg)
	voteMsg := msgr.lastID()
	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, "⬆️"))
	require.NoError(t, reg.OnReaction(100, voteMsg, bert.ID, "⬆️"))

	assert.Equal(t, PhaseEnded, s.Phase())
	assert.Contains(t, msgr.lastText(), "no room in that direction")
	_, stillThere := reg.Lookup(100)
	assert.False(t, stillThere)
}

func TestStrayEventsAreIgnored(t *testing.T) {
	reg := NewRegistry()
	msgr := newFakeMessenger()
	s := startTestCrawl(t, reg, msgr, map[int]*dungeon.Graph{1: twoRooms()}, 1)

	t.Run("reactions during check-in", func(t *testing.T) {
		require.NoError(t, reg.OnReaction(100, msgr.lastID(), anna.ID, "➡️"))
		assert.Equal(t, PhaseCheckIn, s.Phase())
	})

	t.Run("message from a stranger never completes check-in", func(t *testing.T) {
		require.NoError(t, reg.OnMessage(100, 999))
		assert.Equal(t, PhaseCheckIn, s.Phase())
	})

	checkInAll(t, reg)
	voteMsg := msgr.lastID()

	t.Run("off-menu symbol", func(t *testing.T) {
		require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, "🍕"))
		s.mu.Lock()
		assert.Empty(t, s.votes)
		assert.Len(t, s.pendingVotes, 2)
		s.mu.Unlock()
	})

	t.Run("stale message id", func(t *testing.T) {
		require.NoError(t, reg.OnReaction(100, voteMsg-1, anna.ID, "➡️"))
		s.mu.Lock()
		assert.Empty(t, s.votes)
		s.mu.Unlock()
	})

	t.Run("non-participant reactor", func(t *testing.T) {
		require.NoError(t, reg.OnReaction(100, voteMsg, 999, "➡️"))
		s.mu.Lock()
		assert.Empty(t, s.votes)
		assert.Len(t, s.pendingVotes, 2)
		s.mu.Unlock()
	})

	t.Run("chat message during voting", func(t *testing.T) {
		require.NoError(t, reg.OnMessage(100, anna.ID))
		assert.Equal(t, PhaseAwaitingVotes, s.Phase())
	})
}

func TestRevoteOverwritesWithoutReopening(t *testing.T) {
	g := twoRooms()
	room := g.Rooms["A"]
	room.Ways = []dungeon.Direction{dungeon.Right, dungeon.Up}
	g.Rooms["A"] = room
	g.Rooms["N"] = dungeon.Room{ID: "N", X: 0, Y: -1, Ways: []dungeon.Direction{dungeon.Down}}

	reg := NewRegistry()
	msgr := newFakeMessenger()
	s := startTestCrawl(t, reg, msgr, map[int]*dungeon.Graph{1: g}, 1)

	checkInAll(t, reg)
	voteMsg := msgr.lastID()

	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, "⬆️"))
	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, "➡️"))

	s.mu.Lock()
	assert.Equal(t, ChoiceRight, s.votes[anna.ID])
	_, pending := s.pendingVotes[anna.ID]
	assert.False(t, pending)
	assert.Equal(t, PhaseAwaitingVotes, s.phase, "one vote still outstanding")
	s.mu.Unlock()

	// Bert's vote closes the ballot; Anna's final choice Right wins 2-0... or
	// ties 1-1 if her overwrite had not landed. Either way the party moves.
	require.NoError(t, reg.OnReaction(100, voteMsg, bert.ID, "➡️"))
	assert.Equal(t, dungeon.RoomID("B"), s.Room())
}

func TestFloorWithoutStairsCandidates(t *testing.T) {
	g := twoRooms()
	room := g.Rooms["B"]
	room.Landable = false
	g.Rooms["B"] = room

	reg := NewRegistry()
	msgr := newFakeMessenger()
	s := startTestCrawl(t, reg, msgr, map[int]*dungeon.Graph{1: g}, 1)

	assert.Equal(t, PhaseCheckIn, s.Phase(), "missing stairs is degraded, not fatal")
	assert.Contains(t, msgr.lastText(), "no room fit for a staircase")

	// The crawl still walks normally.
	checkInAll(t, reg)
	voteMsg := msgr.lastID()
	assert.False(t, strings.Contains(msgr.lastText(), StairsSymbol+" to go deeper"))
	require.NoError(t, reg.OnReaction(100, voteMsg, anna.ID, "➡️"))
	require.NoError(t, reg.OnReaction(100, voteMsg, bert.ID, "➡️"))
	assert.Equal(t, dungeon.RoomID("B"), s.Room())
}

func TestSessionConfigValidation(t *testing.T) {
	source := &fakeSource{floors: map[int]*dungeon.Graph{1: twoRooms()}}

	t.Run("no players", func(t *testing.T) {
		_, err := NewSession(Config{Channel: 1, Floors: 1, Source: source, Messenger: newFakeMessenger()})
		assert.Error(t, err)
	})

	t.Run("zero floors", func(t *testing.T) {
		_, err := NewSession(Config{Channel: 1, Players: []Player{anna}, Source: source, Messenger: newFakeMessenger()})
		assert.Error(t, err)
	})

	t.Run("missing first floor is fatal at start", func(t *testing.T) {
		_, err := NewSession(Config{
			Channel: 1, Players: []Player{anna}, Floors: 1,
			Source: &fakeSource{floors: nil}, Messenger: newFakeMessenger(),
		})
		assert.ErrorContains(t, err, "floor 1")
	})

	t.Run("duplicate players collapse", func(t *testing.T) {
		s, err := NewSession(Config{
			Channel: 1, Players: []Player{anna, anna, bert}, Floors: 1,
			Source: source, Messenger: newFakeMessenger(),
			Rand: rand.New(rand.NewSource(2)),
		})
		require.NoError(t, err)
		assert.Len(t, s.players, 2)
	})
}
