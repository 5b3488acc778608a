package telegram

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/suderio/delver/internal/crawl"
	"github.com/suderio/delver/internal/initiative"
	"github.com/suderio/delver/internal/rules"
)

// API is the slice of the Bot API the dispatcher needs; *Client satisfies it.
type API interface {
	GetUpdates(offset int, timeout int) ([]Update, error)
	SendMessage(chatID int64, text string) (int, error)
	SendPhoto(chatID int64, caption, path string) (int, error)
	SetMessageReaction(chatID int64, messageID int, emoji string) error
}

// BotConfig wires the dispatcher's collaborators.
type BotConfig struct {
	API     API
	Floors  crawl.FloorSource
	Assets  crawl.AssetLibrary
	Rules   *rules.Registry
	Parties *PartyStore
	Rand    *rand.Rand // optional; clock-seeded when nil
}

// Bot bridges Telegram updates and the per-channel game state: the dungeon
// crawl registry and the combat-initiative manager.
type Bot struct {
	api          API
	floors       crawl.FloorSource
	assets       crawl.AssetLibrary
	rules        *rules.Registry
	parties      *PartyStore
	rng          *rand.Rand
	crawls       *crawl.Registry
	combats      *initiative.Manager
	lastUpdateID int
}

// NewBot initializes a dispatcher with empty game registries.
func NewBot(cfg BotConfig) *Bot {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Bot{
		api:          cfg.API,
		floors:       cfg.Floors,
		assets:       cfg.Assets,
		rules:        cfg.Rules,
		parties:      cfg.Parties,
		rng:          rng,
		crawls:       crawl.NewRegistry(),
		combats:      initiative.NewManager(rng),
		lastUpdateID: viper.GetInt("tg_last_update_id"),
	}
}

// Run launches the long-polling loop.
func (b *Bot) Run() {
	log.Printf("delver bot started")
	for {
		updates, err := b.api.GetUpdates(b.lastUpdateID+1, 25)
		if err != nil {
			log.Printf("Error fetching updates: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, update := range updates {
			if update.UpdateID > b.lastUpdateID {
				b.lastUpdateID = update.UpdateID
				// Persist last_update_id so a restart does not replay events
				viper.Set("tg_last_update_id", b.lastUpdateID)
				_ = viper.WriteConfig() // Ignore error if config file doesn't exist yet
			}
			b.HandleUpdate(update)
		}
	}
}

// HandleUpdate routes one update to the matching channel's game state.
func (b *Bot) HandleUpdate(update Update) {
	switch {
	case update.MessageReaction != nil:
		r := update.MessageReaction
		if len(r.NewReaction) == 0 {
			return // reaction removed; only additions drive votes
		}
		emoji := r.NewReaction[len(r.NewReaction)-1].Emoji
		if emoji == "" {
			return
		}
		if err := b.crawls.OnReaction(crawl.ChannelID(r.Chat.ID), crawl.MessageID(r.MessageID), crawl.PlayerID(r.User.ID), emoji); err != nil {
			log.Printf("chat %d: reaction handling failed: %v", r.Chat.ID, err)
		}
	case update.Message != nil:
		msg := update.Message
		if strings.HasPrefix(msg.Text, "/") {
			b.handleCommand(msg)
			return
		}
		if err := b.crawls.OnMessage(crawl.ChannelID(msg.Chat.ID), crawl.PlayerID(msg.From.ID)); err != nil {
			log.Printf("chat %d: message handling failed: %v", msg.Chat.ID, err)
		}
	}
}

func (b *Bot) handleCommand(msg *Message) {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i] // strip the bot mention from /crawl@MyBot
	}
	args := fields[1:]

	switch strings.ToLower(cmd) {
	case "crawl":
		b.startCrawl(msg, args)
	case "endcrawl":
		found, err := b.crawls.Terminate(crawl.ChannelID(msg.Chat.ID))
		if err != nil {
			log.Printf("chat %d: termination failed: %v", msg.Chat.ID, err)
		}
		if !found {
			b.notify(msg.Chat.ID, "There is no active dungeon crawl in this channel.")
		}
	case "combat":
		if err := b.combats.Start(msg.Chat.ID); err != nil {
			b.notify(msg.Chat.ID, "Initiative tracking is already active in this channel!")
			return
		}
		b.notify(msg.Chat.ID, "Combat has started! Use /join <name> <dexterity> to enter initiative.")
	case "join":
		b.joinCombat(msg, args)
	case "leave":
		if len(args) < 1 {
			b.notify(msg.Chat.ID, "Usage: /leave <name>")
			return
		}
		b.withCombat(msg.Chat.ID, func(t *initiative.Tracker) error {
			if t.Remove(args[0]) {
				b.notify(msg.Chat.ID, fmt.Sprintf("%s has been removed from the initiative order.", args[0]))
			}
			return nil
		})
	case "order":
		b.withCombat(msg.Chat.ID, func(t *initiative.Tracker) error {
			if err := t.Begin(); err != nil {
				b.notify(msg.Chat.ID, "No characters are in the initiative order.")
				return nil
			}
			b.notify(msg.Chat.ID, t.OrderMessage())
			b.announceTurn(msg.Chat.ID, t)
			return nil
		})
	case "next":
		b.withCombat(msg.Chat.ID, func(t *initiative.Tracker) error {
			newRound, err := t.Next()
			if err != nil {
				b.notify(msg.Chat.ID, "Combat has not started. Use /order first.")
				return nil
			}
			if newRound {
				b.notify(msg.Chat.ID, t.OrderMessage())
			}
			b.announceTurn(msg.Chat.ID, t)
			return nil
		})
	case "prio":
		if len(args) < 2 {
			b.notify(msg.Chat.ID, "Usage: /prio <name> <value>")
			return
		}
		value, err := strconv.Atoi(args[1])
		if err != nil {
			b.notify(msg.Chat.ID, "Usage: /prio <name> <value>")
			return
		}
		b.withCombat(msg.Chat.ID, func(t *initiative.Tracker) error {
			t.Prio(args[0], value)
			b.notify(msg.Chat.ID, fmt.Sprintf("%s's initiative is set to %d for the next round.", args[0], value))
			return nil
		})
	case "react":
		if len(args) < 1 {
			b.notify(msg.Chat.ID, "Usage: /react <name>")
			return
		}
		b.withCombat(msg.Chat.ID, func(t *initiative.Tracker) error {
			t.React(args[0])
			b.notify(msg.Chat.ID, fmt.Sprintf("%s will act last in the next round.", args[0]))
			return nil
		})
	case "stall":
		b.withCombat(msg.Chat.ID, func(t *initiative.Tracker) error {
			stalled, err := t.Stall()
			if err != nil {
				b.notify(msg.Chat.ID, "Combat has not started. Use /order first.")
				return nil
			}
			b.notify(msg.Chat.ID, fmt.Sprintf("%s is stalling and will act last this round.", stalled.Name))
			b.announceTurn(msg.Chat.ID, t)
			return nil
		})
	case "endcombat":
		if b.combats.End(msg.Chat.ID) {
			b.notify(msg.Chat.ID, "Combat has ended in this channel.")
		}
	case "help":
		b.notify(msg.Chat.ID, helpText)
	}
}

// startCrawl recruits the chat's configured roster (plus the issuer) and
// opens a crawl session.
func (b *Bot) startCrawl(msg *Message, args []string) {
	floors := 1
	if len(args) >= 1 {
		f, err := strconv.Atoi(args[0])
		if err != nil || f < 1 {
			b.notify(msg.Chat.ID, "Usage: /crawl <floors> [difficulty]")
			return
		}
		floors = f
	}
	difficulty := rules.Medium
	if len(args) >= 2 {
		d, err := rules.ParseDifficulty(args[1])
		if err != nil {
			b.notify(msg.Chat.ID, err.Error())
			return
		}
		difficulty = d
	}

	players := []crawl.Player{{ID: crawl.PlayerID(msg.From.ID), Name: displayName(msg.From)}}
	if b.parties != nil {
		roster, err := b.parties.Load(msg.Chat.ID)
		if err != nil {
			log.Printf("chat %d: party roster unavailable: %v", msg.Chat.ID, err)
		}
		ids := make([]int64, 0, len(roster.Users))
		for id := range roster.Users {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			players = append(players, crawl.Player{ID: crawl.PlayerID(id), Name: roster.Users[id]})
		}
	}

	_, err := b.crawls.Start(crawl.Config{
		Channel:    crawl.ChannelID(msg.Chat.ID),
		Players:    players,
		Floors:     floors,
		Difficulty: difficulty,
		Source:     b.floors,
		Messenger:  b,
		Assets:     b.assets,
		Rules:      b.rules,
		Rand:       rand.New(rand.NewSource(b.rng.Int63())),
	})
	switch {
	case err == crawl.ErrAlreadyActive:
		b.notify(msg.Chat.ID, "A dungeon crawl is already active in this channel!")
	case err != nil:
		b.notify(msg.Chat.ID, fmt.Sprintf("Could not start the crawl: %v", err))
	}
}

func (b *Bot) joinCombat(msg *Message, args []string) {
	if len(args) < 2 {
		b.notify(msg.Chat.ID, "Usage: /join <name> <dexterity>")
		return
	}
	dex, err := strconv.Atoi(args[1])
	if err != nil {
		b.notify(msg.Chat.ID, "Usage: /join <name> <dexterity>")
		return
	}
	b.withCombat(msg.Chat.ID, func(t *initiative.Tracker) error {
		c := t.Join(args[0], dex)
		b.notify(msg.Chat.ID, fmt.Sprintf("%s has joined the initiative with Dexterity %d and a tiebreaker roll of %d!", c.Name, c.Dexterity, c.Roll))
		return nil
	})
}

func (b *Bot) withCombat(chatID int64, fn func(*initiative.Tracker) error) {
	if err := b.combats.With(chatID, fn); err == initiative.ErrNoCombat {
		b.notify(chatID, "Combat has not been started in this channel. Use /combat first.")
	}
}

func (b *Bot) announceTurn(chatID int64, t *initiative.Tracker) {
	cur, err := t.Current()
	if err != nil {
		return
	}
	b.notify(chatID, fmt.Sprintf("It is now *%s's* turn!", cur.Name))
}

func (b *Bot) notify(chatID int64, text string) {
	if _, err := b.api.SendMessage(chatID, text); err != nil {
		log.Printf("chat %d: failed to send notice: %v", chatID, err)
	}
}

// SendMessage implements crawl.Messenger.
func (b *Bot) SendMessage(channel crawl.ChannelID, text, imagePath string) (crawl.MessageID, error) {
	if imagePath != "" {
		id, err := b.api.SendPhoto(int64(channel), text, imagePath)
		if err == nil {
			return crawl.MessageID(id), nil
		}
		// Fall through to plain text; a lost illustration should not stall the crawl.
		log.Printf("chat %d: photo upload failed, sending text only: %v", channel, err)
	}
	id, err := b.api.SendMessage(int64(channel), text)
	return crawl.MessageID(id), err
}

// AddReactions implements crawl.Messenger. A bot account carries one reaction
// per message, so the first menu symbol is set as a cue; the full menu is in
// the message text.
func (b *Bot) AddReactions(channel crawl.ChannelID, msg crawl.MessageID, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	return b.api.SetMessageReaction(int64(channel), int(msg), symbols[0])
}

func displayName(u User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

const helpText = `*Delver commands*
Dungeon crawl:
/crawl <floors> [difficulty] - start a crawl with the chat's party
/endcrawl - abandon the active crawl

Combat initiative:
/combat - open initiative tracking
/join <name> <dexterity> - enter the initiative order
/leave <name> - leave the order
/order - announce the order and start turns
/next - end the current turn
/prio <name> <value> - pin initiative for the next round
/react <name> - act last next round
/stall - current character acts last this round
/endcombat - close initiative tracking`
