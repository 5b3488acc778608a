package telegram

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

// fakeAPI records outbound calls and never talks to the network.
type fakeAPI struct {
	mu       sync.Mutex
	messages []string
	photos   []string
	nextID   int
}

func (f *fakeAPI) GetUpdates(offset, timeout int) ([]Update, error) { return nil, nil }

func (f *fakeAPI) SendMessage(chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages = append(f.messages, text)
	return f.nextID, nil
}

func (f *fakeAPI) SendPhoto(chatID int64, caption, path string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.photos = append(f.photos, path)
	f.messages = append(f.messages, caption)
	return f.nextID, nil
}

func (f *fakeAPI) SetMessageReaction(chatID int64, messageID int, emoji string) error {
	return nil
}

func (f *fakeAPI) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeAPI) lastID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextID
}

type fakeFloors struct{ floors map[int]*dungeon.Graph }

func (f *fakeFloors) Load(floor int) (*dungeon.Graph, error) {
	g, ok := f.floors[floor]
	if !ok {
		return nil, fmt.Errorf("%w %d", dungeon.ErrNotFound, floor)
	}
	return g, nil
}

func corridor() *dungeon.Graph {
	return &dungeon.Graph{
		Start: "A",
		Rooms: map[dungeon.RoomID]dungeon.Room{
			"A": {ID: "A", X: 0, Y: 0, Ways: []dungeon.Direction{dungeon.Right}},
			"B": {ID: "B", X: 1, Y: 0, Ways: []dungeon.Direction{dungeon.Left}, Landable: true},
		},
	}
}

const (
	chatID = int64(-100500)
	annaID = int64(11)
	bertID = int64(22)
)

func newTestBot(t *testing.T) (*Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	parties := NewPartyStore(t.TempDir())
	require.NoError(t, parties.Save(chatID, PartyConfig{Users: map[int64]string{bertID: "Bert"}}))
	bot := NewBot(BotConfig{
		API:     api,
		Floors:  &fakeFloors{floors: map[int]*dungeon.Graph{1: corridor()}},
		Parties: parties,
		Rand:    rand.New(rand.NewSource(1)),
	})
	return bot, api
}

func message(from int64, name, text string) Update {
	return Update{Message: &Message{
		MessageID: 1,
		From:      User{ID: from, FirstName: name},
		Chat:      Chat{ID: chatID},
		Text:      text,
	}}
}

func reaction(from int64, msgID int, emoji string) Update {
	return Update{MessageReaction: &MessageReaction{
		Chat:        Chat{ID: chatID},
		MessageID:   msgID,
		User:        User{ID: from},
		NewReaction: []ReactionType{{Type: "emoji", Emoji: emoji}},
	}}
}

func TestCrawlOverTelegram(t *testing.T) {
	bot, api := newTestBot(t)

	bot.HandleUpdate(message(annaID, "Anna", "/crawl 1 easy"))
	intro := api.last()
	assert.Contains(t, intro, "Dungeon Crawl Begins")
	assert.Contains(t, intro, "Anna")
	assert.Contains(t, intro, "Bert", "roster members join the party")

	t.Run("second crawl is rejected", func(t *testing.T) {
		bot.HandleUpdate(message(annaID, "Anna", "/crawl 2 hard"))
		assert.Contains(t, api.last(), "already active")
	})

	// Check-in requires everyone; slash commands never count.
	bot.HandleUpdate(message(annaID, "Anna", "hello"))
	assert.Contains(t, api.last(), "already active", "no room description yet")
	bot.HandleUpdate(message(bertID, "Bert", "here!"))
	assert.Contains(t, api.last(), "Room A (Floor 1)")

	voteMsg := api.lastID()
	bot.HandleUpdate(reaction(annaID, voteMsg, "➡️"))
	bot.HandleUpdate(reaction(bertID, voteMsg, "➡️"))
	assert.Contains(t, api.last(), "moves *Right*")

	t.Run("endcrawl tears the session down", func(t *testing.T) {
		bot.HandleUpdate(message(annaID, "Anna", "/endcrawl"))
		assert.Contains(t, api.last(), "abandons the dungeon")
		bot.HandleUpdate(message(annaID, "Anna", "/endcrawl"))
		assert.Contains(t, api.last(), "no active dungeon crawl")
	})
}

func TestReactionEdgeCases(t *testing.T) {
	bot, api := newTestBot(t)
	bot.HandleUpdate(message(annaID, "Anna", "/crawl 1"))
	bot.HandleUpdate(message(annaID, "Anna", "hi"))
	bot.HandleUpdate(message(bertID, "Bert", "hi"))
	voteMsg := api.lastID()
	before := api.last()

	t.Run("removed reactions are ignored", func(t *testing.T) {
		bot.HandleUpdate(Update{MessageReaction: &MessageReaction{
			Chat: Chat{ID: chatID}, MessageID: voteMsg, User: User{ID: annaID},
		}})
		assert.Equal(t, before, api.last())
	})

	t.Run("unknown chat is ignored", func(t *testing.T) {
		u := reaction(annaID, voteMsg, "➡️")
		u.MessageReaction.Chat.ID = 777
		bot.HandleUpdate(u)
		assert.Equal(t, before, api.last())
	})
}

func TestCombatCommands(t *testing.T) {
	bot, api := newTestBot(t)

	bot.HandleUpdate(message(annaID, "Anna", "/next"))
	assert.Contains(t, api.last(), "Combat has not been started")

	bot.HandleUpdate(message(annaID, "Anna", "/combat"))
	assert.Contains(t, api.last(), "Combat has started")

	bot.HandleUpdate(message(annaID, "Anna", "/combat"))
	assert.Contains(t, api.last(), "already active")

	bot.HandleUpdate(message(annaID, "Anna", "/join Rogue 18"))
	assert.Contains(t, api.last(), "Rogue has joined the initiative")
	bot.HandleUpdate(message(bertID, "Bert", "/join Wizard 12"))

	bot.HandleUpdate(message(annaID, "Anna", "/order"))
	assert.Contains(t, api.last(), "It is now *Rogue's* turn!")

	bot.HandleUpdate(message(annaID, "Anna", "/next"))
	assert.Contains(t, api.last(), "It is now *Wizard's* turn!")

	bot.HandleUpdate(message(annaID, "Anna", "/prio Wizard 30"))
	bot.HandleUpdate(message(annaID, "Anna", "/next"))
	assert.Contains(t, api.last(), "It is now *Wizard's* turn!", "prio reorders the new round")

	bot.HandleUpdate(message(annaID, "Anna", "/endcombat"))
	assert.Contains(t, api.last(), "Combat has ended")
}

func TestCommandParsing(t *testing.T) {
	bot, api := newTestBot(t)

	t.Run("bot mention suffix is stripped", func(t *testing.T) {
		bot.HandleUpdate(message(annaID, "Anna", "/help@DelverBot"))
		assert.Contains(t, api.last(), "Delver commands")
	})

	t.Run("bad crawl arguments", func(t *testing.T) {
		bot.HandleUpdate(message(annaID, "Anna", "/crawl zero"))
		assert.Contains(t, api.last(), "Usage: /crawl")
		bot.HandleUpdate(message(annaID, "Anna", "/crawl 2 nightmare"))
		assert.Contains(t, api.last(), "unknown difficulty")
	})
}

func TestPartyStore(t *testing.T) {
	store := NewPartyStore(t.TempDir())

	cfg, err := store.Load(1)
	require.NoError(t, err)
	assert.Empty(t, cfg.Users, "missing file is an empty roster")

	cfg.Users[annaID] = "Anna"
	require.NoError(t, store.Save(1, cfg))

	loaded, err := store.Load(1)
	require.NoError(t, err)
	assert.Equal(t, "Anna", loaded.Users[annaID])
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Anna", displayName(User{ID: 1, FirstName: "Anna", Username: "anna_b"}))
	assert.Equal(t, "anna_b", displayName(User{ID: 1, Username: "anna_b"}))
	assert.Equal(t, "1", displayName(User{ID: 1}))
	assert.True(t, strings.HasPrefix(helpText, "*Delver commands*"))
}
