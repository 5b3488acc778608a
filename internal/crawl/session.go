package crawl

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/suderio/delver/internal/dungeon"
	"github.com/suderio/delver/internal/rules"
)

// Phase is the single active state of a crawl session.
type Phase string

const (
	PhaseCheckIn       Phase = "CheckIn"
	PhaseAwaitingVotes Phase = "AwaitingVotes"
	PhaseResolving     Phase = "Resolving"
	PhaseEnded         Phase = "Ended"
)

// Config carries everything a new crawl session depends on.
type Config struct {
	Channel    ChannelID
	Players    []Player
	Floors     int
	Difficulty rules.Difficulty
	Source     FloorSource
	Messenger  Messenger
	Assets     AssetLibrary    // optional; rooms simply have no image without it
	Rules      *rules.Registry // optional; stairs placement falls back to base eligibility
	Rand       *rand.Rand      // optional; seeded from the clock when nil
}

// Session drives one channel's dungeon crawl. Handlers are the only mutators
// of its state and serialize on an internal mutex, so events for one channel
// are processed one at a time while other channels progress independently.
type Session struct {
	mu sync.Mutex

	channel    ChannelID
	players    []Player
	names      map[PlayerID]string
	floors     int
	difficulty rules.Difficulty
	source     FloorSource
	msgr       Messenger
	assets     AssetLibrary
	rules      *rules.Registry
	rng        *rand.Rand

	phase  Phase
	floor  int
	graph  *dungeon.Graph
	room   dungeon.RoomID
	stairs dungeon.RoomID // empty when the floor has no stairs

	pendingCheckIn map[PlayerID]struct{}
	pendingVotes   map[PlayerID]struct{}
	votes          map[PlayerID]Choice
	voteMsg        MessageID
	menu           map[string]Choice
	menuOrder      []string
}

// NewSession loads the first floor and builds a session in the CheckIn phase.
// It does not announce anything; callers register the session first and then
// invoke Begin.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Messenger == nil || cfg.Source == nil {
		return nil, fmt.Errorf("session requires a messenger and a floor source")
	}
	if cfg.Floors < 1 {
		return nil, fmt.Errorf("a crawl needs at least one floor, got %d", cfg.Floors)
	}

	// Join order is preserved; duplicates collapse onto the first entry.
	var players []Player
	names := make(map[PlayerID]string)
	for _, p := range cfg.Players {
		if _, ok := names[p.ID]; ok {
			continue
		}
		names[p.ID] = p.Name
		players = append(players, p)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("a crawl needs at least one party member")
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	graph, err := cfg.Source.Load(1)
	if err != nil {
		return nil, fmt.Errorf("could not load dungeon for floor 1: %w", err)
	}

	s := &Session{
		channel:    cfg.Channel,
		players:    players,
		names:      names,
		floors:     cfg.Floors,
		difficulty: cfg.Difficulty,
		source:     cfg.Source,
		msgr:       cfg.Messenger,
		assets:     cfg.Assets,
		rules:      cfg.Rules,
		rng:        rng,
		phase:      PhaseCheckIn,
		floor:      1,
		graph:      graph,
		room:       graph.Start,
	}
	s.pickStairs()
	s.resetCheckIn()
	return s, nil
}

// Begin announces the crawl and prompts the first check-in.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var mentions []string
	for _, p := range s.players {
		mentions = append(mentions, p.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🗝️ *Dungeon Crawl Begins!*\n")
	fmt.Fprintf(&b, "Party: %s\n", strings.Join(mentions, ", "))
	fmt.Fprintf(&b, "Floors: %d | Difficulty: %s\n\n", s.floors, capitalize(string(s.difficulty)))
	b.WriteString("*How it works:*\n")
	b.WriteString("- Each floor is a new map, loaded from your prepared dungeons.\n")
	b.WriteString("- A random room on each floor (other than start) contains stairs. You must find it!\n")
	b.WriteString("- Everyone *must write at least once* in the chat before each new room.\n")
	b.WriteString("- After that, the room is described, and the team will vote where to go with emoji!\n")
	fmt.Fprintf(&b, "- *If you find stairs, react with %s to go deeper.*\n", StairsSymbol)
	b.WriteString("- The most voted direction is chosen, but *everyone must vote before moving on*.\n")
	b.WriteString("Let's begin!\n\n")
	if w := s.stairsWarning(); w != "" {
		b.WriteString(w + "\n\n")
	}
	fmt.Fprintf(&b, "%s, please say something to show you're here!", s.players[0].Name)

	if _, err := s.msgr.SendMessage(s.channel, b.String(), ""); err != nil {
		return fmt.Errorf("failed to announce crawl start: %w", err)
	}
	return nil
}

// HandleMessage consumes one chat message during the CheckIn phase. Messages
// in any other phase, or from players already checked in, are ignored.
func (s *Session) HandleMessage(author PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCheckIn {
		return nil
	}
	if _, waiting := s.pendingCheckIn[author]; !waiting {
		return nil
	}
	delete(s.pendingCheckIn, author)
	if len(s.pendingCheckIn) > 0 {
		return nil
	}
	return s.describeRoom()
}

// HandleReaction consumes one reaction-add event during the AwaitingVotes
// phase. Reactions from non-participants, on stale messages, or with symbols
// outside the current menu are ignored without any state change. A re-vote
// overwrites the player's earlier choice.
func (s *Session) HandleReaction(msg MessageID, author PlayerID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingVotes {
		return nil
	}
	if msg != s.voteMsg {
		return nil
	}
	if _, ok := s.names[author]; !ok {
		return nil
	}
	choice, ok := s.menu[symbol]
	if !ok {
		return nil
	}

	s.votes[author] = choice
	delete(s.pendingVotes, author)
	if len(s.pendingVotes) > 0 {
		return nil
	}

	s.phase = PhaseResolving
	return s.resolve()
}

// Terminate tears the session down immediately, discarding in-flight phase
// state. The registry drops it once the phase reads Ended.
func (s *Session) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded {
		return nil
	}
	s.phase = PhaseEnded
	if _, err := s.msgr.SendMessage(s.channel, "The party abandons the dungeon. The crawl is over.", ""); err != nil {
		return fmt.Errorf("failed to announce crawl termination: %w", err)
	}
	return nil
}

// Phase returns the session's current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Floor returns the floor the party is currently on.
func (s *Session) Floor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.floor
}

// Room returns the party's current room.
func (s *Session) Room() dungeon.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// describeRoom emits the room description plus vote menu and opens the
// AwaitingVotes phase. Caller holds the lock.
func (s *Session) describeRoom() error {
	s.votes = make(map[PlayerID]Choice)
	s.pendingVotes = make(map[PlayerID]struct{}, len(s.players))
	for _, p := range s.players {
		s.pendingVotes[p.ID] = struct{}{}
	}

	room := s.graph.Rooms[s.room]
	s.menu = make(map[string]Choice)
	s.menuOrder = s.menuOrder[:0]
	for _, dir := range dungeon.CardinalDirections {
		if room.HasWay(dir) {
			symbol := directionSymbols[dir]
			s.menu[symbol] = Choice(dir)
			s.menuOrder = append(s.menuOrder, symbol)
		}
	}
	onStairs := s.stairs != "" && s.room == s.stairs && room.Landable
	if onStairs {
		s.menu[StairsSymbol] = ChoiceDescend
		s.menuOrder = append(s.menuOrder, StairsSymbol)
	}

	desc := roomDescriptions[s.rng.Intn(len(roomDescriptions))]
	if onStairs {
		desc += fmt.Sprintf("\n\n*You see a staircase descending! React with %s to go deeper.*", StairsSymbol)
	}

	var image string
	if s.assets != nil {
		if path, ok := s.assets.RoomImage(s.floor, s.room); ok {
			image = path
		}
	}

	text := fmt.Sprintf("*Room %s (Floor %d)*\n%s\n\nWhich way will the party go? React with %s below!\n*All party members must vote before the room continues!*",
		s.room, s.floor, desc, strings.Join(s.menuOrder, " "))

	msgID, err := s.msgr.SendMessage(s.channel, text, image)
	if err != nil {
		return fmt.Errorf("failed to describe room %s: %w", s.room, err)
	}
	if err := s.msgr.AddReactions(s.channel, msgID, append([]string(nil), s.menuOrder...)); err != nil {
		return fmt.Errorf("failed to seed vote reactions: %w", err)
	}

	s.voteMsg = msgID
	s.phase = PhaseAwaitingVotes
	return nil
}

// resolve tallies the completed ballot and advances the crawl. Caller holds
// the lock.
func (s *Session) resolve() error {
	winner, err := Tally(s.rng, s.votes)
	if err != nil {
		// Unreachable under the phase contract; report and re-open the vote
		// rather than defaulting a direction.
		if _, serr := s.msgr.SendMessage(s.channel, "No direction could be chosen from the votes. Let's try that room again.", ""); serr != nil {
			return serr
		}
		return s.describeRoom()
	}

	if winner == ChoiceDescend {
		return s.descend()
	}

	dir, _ := winner.Direction()
	dest, ok := dungeon.Step(s.graph, s.room, dir)
	if !ok {
		s.phase = PhaseEnded
		if _, err := s.msgr.SendMessage(s.channel, "There is no room in that direction! The crawl ends here.", ""); err != nil {
			return fmt.Errorf("failed to announce dead end: %w", err)
		}
		return nil
	}

	s.room = dest
	text := fmt.Sprintf("The party moves *%s*! %s\n\nBefore the next room, everyone must check in again by sending a message!", dir, directionSymbols[dir])
	if _, err := s.msgr.SendMessage(s.channel, text, ""); err != nil {
		return fmt.Errorf("failed to announce movement: %w", err)
	}
	s.resetCheckIn()
	s.phase = PhaseCheckIn
	return nil
}

// descend advances to the next floor, or ends the crawl in victory on the
// last one. Caller holds the lock.
func (s *Session) descend() error {
	if _, err := s.msgr.SendMessage(s.channel, fmt.Sprintf("The party descends the staircase! %s", StairsSymbol), ""); err != nil {
		return fmt.Errorf("failed to announce descent: %w", err)
	}

	if s.floor >= s.floors {
		s.phase = PhaseEnded
		if _, err := s.msgr.SendMessage(s.channel, "You descend the last stairs and complete the dungeon. *Victory!*", ""); err != nil {
			return fmt.Errorf("failed to announce victory: %w", err)
		}
		return nil
	}

	next := s.floor + 1
	graph, err := s.source.Load(next)
	if err != nil {
		s.phase = PhaseEnded
		if _, serr := s.msgr.SendMessage(s.channel, fmt.Sprintf("Could not load dungeon for floor %d. The crawl cannot continue.", next), ""); serr != nil {
			return serr
		}
		return fmt.Errorf("floor %d unavailable: %w", next, err)
	}

	s.floor = next
	s.graph = graph
	s.room = graph.Start
	s.pickStairs()

	text := fmt.Sprintf("Descending to floor %d!\n\nBefore the next room, everyone must check in again by sending a message!", s.floor)
	if w := s.stairsWarning(); w != "" {
		text = w + "\n\n" + text
	}
	if _, err := s.msgr.SendMessage(s.channel, text, ""); err != nil {
		return fmt.Errorf("failed to announce new floor: %w", err)
	}
	s.resetCheckIn()
	s.phase = PhaseCheckIn
	return nil
}

// pickStairs seeds the floor's staircase. The difficulty filter narrows the
// pool first; when it eliminates everything the base eligibility set is used,
// so difficulty never strands a floor the original rules could seed.
func (s *Session) pickStairs() {
	var filter dungeon.StairsFilter
	if s.rules != nil {
		filter = s.rules.StairsFilter(s.difficulty, s.graph, s.floor)
	}
	if id, ok := dungeon.PickStairsRoom(s.rng, s.graph, s.room, filter); ok {
		s.stairs = id
		return
	}
	if filter != nil {
		if id, ok := dungeon.PickStairsRoom(s.rng, s.graph, s.room, nil); ok {
			s.stairs = id
			return
		}
	}
	s.stairs = ""
}

// stairsWarning reports a floor without any stairs candidate. The crawl
// proceeds; there is simply no way deeper from this floor.
func (s *Session) stairsWarning() string {
	if s.stairs != "" {
		return ""
	}
	return "⚠️ This floor has no room fit for a staircase. Explore at your peril, there may be no way deeper."
}

func (s *Session) resetCheckIn() {
	s.pendingCheckIn = make(map[PlayerID]struct{}, len(s.players))
	for _, p := range s.players {
		s.pendingCheckIn[p.ID] = struct{}{}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
