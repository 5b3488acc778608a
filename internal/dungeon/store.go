package dungeon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrNotFound signals that no floor definition exists for the requested number.
var ErrNotFound = errors.New("no dungeon definition for floor")

// Store reads immutable floor graphs from the read-only data layer. Each floor
// lives at <dir>/<floor>/rooms.json; directories are searched sequentially so a
// campaign can override the shared library.
type Store struct {
	dataDirs []string
}

// NewStore initializes a Store with the given data directory fallback hierarchy.
func NewStore(dataDirs []string) *Store {
	return &Store{dataDirs: dataDirs}
}

// Load constructs the graph for one floor by searching through the data
// directories sequentially. The returned graph is validated and must be
// treated as immutable for the floor's lifetime.
func (s *Store) Load(floor int) (*Graph, error) {
	ref := filepath.Join(strconv.Itoa(floor), "rooms.json")
	for _, dir := range s.dataDirs {
		path := filepath.Join(dir, ref)
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()

		var g Graph
		if err := json.NewDecoder(f).Decode(&g); err != nil {
			return nil, fmt.Errorf("failed to decode floor file %s: %w", path, err)
		}
		g.normalize()
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("invalid floor file %s: %w", path, err)
		}
		return &g, nil
	}
	return nil, fmt.Errorf("%w %d", ErrNotFound, floor)
}

// WriteFile serializes a graph to <path> in the floor file format. Used by the
// generator; the bot itself never writes floor data.
func WriteFile(g *Graph, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create floor directory: %w", err)
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal floor graph: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
