package telegram

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PartyConfig maps Telegram user ids to display names for one chat. It is the
// roster a /crawl command recruits from.
type PartyConfig struct {
	Users map[int64]string `yaml:"users"`
}

// PartyStore reads and writes per-chat party rosters as
// <dir>/<chat_id>.yaml.
type PartyStore struct {
	dir string
}

// NewPartyStore returns a store rooted at dir.
func NewPartyStore(dir string) *PartyStore {
	return &PartyStore{dir: dir}
}

func (p *PartyStore) path(chatID int64) string {
	return filepath.Join(p.dir, strconv.FormatInt(chatID, 10)+".yaml")
}

// Load returns the chat's roster. A missing file is an empty roster, not an
// error.
func (p *PartyStore) Load(chatID int64) (PartyConfig, error) {
	cfg := PartyConfig{Users: make(map[int64]string)}
	f, err := os.Open(p.path(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to open party file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode party file for chat %d: %w", chatID, err)
	}
	if cfg.Users == nil {
		cfg.Users = make(map[int64]string)
	}
	return cfg, nil
}

// Save writes the chat's roster.
func (p *PartyStore) Save(chatID int64, cfg PartyConfig) error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("failed to create party directory: %w", err)
	}
	f, err := os.Create(p.path(chatID))
	if err != nil {
		return fmt.Errorf("failed to create party file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode party file: %w", err)
	}
	return nil
}
