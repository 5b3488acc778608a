package crawl

import (
	"github.com/suderio/delver/internal/dungeon"
)

// ChannelID identifies a chat channel on the messaging platform.
type ChannelID int64

// MessageID identifies a message previously sent to a channel.
type MessageID int

// PlayerID identifies a party member on the messaging platform.
type PlayerID int64

// Player pairs a platform identity with a display name for announcements.
type Player struct {
	ID   PlayerID
	Name string
}

// Choice is one voteable option on a room menu: a cardinal direction or the
// staircase descent.
type Choice string

const (
	ChoiceUp      Choice = "Up"
	ChoiceDown    Choice = "Down"
	ChoiceLeft    Choice = "Left"
	ChoiceRight   Choice = "Right"
	ChoiceDescend Choice = "Descend"
)

// Direction returns the dungeon direction behind a movement choice. Descend
// has no direction.
func (c Choice) Direction() (dungeon.Direction, bool) {
	switch c {
	case ChoiceUp, ChoiceDown, ChoiceLeft, ChoiceRight:
		return dungeon.Direction(c), true
	}
	return "", false
}

// Reaction symbols offered on vote messages, ported from the original bot.
var directionSymbols = map[dungeon.Direction]string{
	dungeon.Up:    "⬆️",
	dungeon.Down:  "⬇️",
	dungeon.Left:  "⬅️",
	dungeon.Right: "➡️",
}

// StairsSymbol marks the descend option on a stairs room's vote menu.
const StairsSymbol = "🏃‍♂️"

// Symbol returns the reaction emoji a vote for this choice is cast with.
func (c Choice) Symbol() string {
	if c == ChoiceDescend {
		return StairsSymbol
	}
	return directionSymbols[dungeon.Direction(c)]
}

// Messenger is the outbound half of the messaging gateway. SendMessage
// attaches the image when imagePath is non-empty.
type Messenger interface {
	SendMessage(channel ChannelID, text string, imagePath string) (MessageID, error)
	AddReactions(channel ChannelID, msg MessageID, symbols []string) error
}

// AssetLibrary resolves optional room illustrations. Absence is not an error.
type AssetLibrary interface {
	RoomImage(floor int, room dungeon.RoomID) (string, bool)
}

// FloorSource loads immutable floor graphs. dungeon.Store satisfies it.
type FloorSource interface {
	Load(floor int) (*dungeon.Graph, error)
}

// Room flavor texts, ported from the original bot.
var roomDescriptions = []string{
	"You enter a torch-lit stone chamber with ancient runes on the walls.",
	"The room is filled with a thick, swirling mist that makes it hard to see.",
	"You find yourselves in a library with rotting books and scattered scrolls.",
	"A collapsed ceiling blocks half the room. There are footprints in the dust.",
	"Crystals grow from the floor, emitting a faint magical glow.",
	"The air here is frigid, and you see your breath in the flickering light.",
}
