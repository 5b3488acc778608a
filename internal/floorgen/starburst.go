// Package floorgen generates starburst-shaped floor layouts: a straight
// central spine with mirrored branches angling off above and below on each
// side. Generated graphs always satisfy the structural invariants the store
// enforces, in particular that every listed way leads to a real neighbor.
package floorgen

import (
	"fmt"
	"math/rand"

	"github.com/suderio/delver/internal/dungeon"
)

// Options shapes one generated floor.
type Options struct {
	// BranchesPerSide is the number of branches on each side of the spine.
	// Must be an odd number >= 1, matching the classic starburst form.
	BranchesPerSide int
	// MaxBranchLen caps how far a branch wanders from the spine. Minimum 1.
	MaxBranchLen int
	// LandableChance is the per-room probability (percent) that a non-tip
	// room may also host stairs. Branch tips are always landable.
	LandableChance int
}

// DefaultOptions mirrors the classic 3-branch starburst.
func DefaultOptions() Options {
	return Options{BranchesPerSide: 3, MaxBranchLen: 2, LandableChance: 20}
}

type cell struct{ x, y int }

// Generate builds one starburst floor. The party starts at the center of the
// spine.
func Generate(rng *rand.Rand, opts Options) (*dungeon.Graph, error) {
	if opts.BranchesPerSide < 1 || opts.BranchesPerSide%2 == 0 {
		return nil, fmt.Errorf("branches per side must be an odd integer >= 1, got %d", opts.BranchesPerSide)
	}
	if opts.MaxBranchLen < 1 {
		opts.MaxBranchLen = 1
	}

	occupied := make(map[cell]bool)
	edges := make(map[cell][]cell)
	place := func(c cell) { occupied[c] = true }
	connect := func(a, b cell) {
		edges[a] = append(edges[a], b)
		edges[b] = append(edges[b], a)
	}

	// The spine runs one junction per branch plus a tip on each side.
	half := opts.BranchesPerSide + 1
	place(cell{0, 0})
	for x := 1; x <= half; x++ {
		place(cell{x, 0})
		connect(cell{x - 1, 0}, cell{x, 0})
		place(cell{-x, 0})
		connect(cell{-x + 1, 0}, cell{-x, 0})
	}

	// Branches leave the spine junctions, alternating above and below, and
	// grow longer toward the center like the starburst's dashes.
	tips := []cell{{half, 0}, {-half, 0}}
	for i := 1; i <= opts.BranchesPerSide; i++ {
		dy := 1
		if i%2 == 0 {
			dy = -1
		}
		length := 1 + rng.Intn(opts.MaxBranchLen)
		for _, sign := range []int{1, -1} {
			prev := cell{sign * i, 0}
			for step := 1; step <= length; step++ {
				next := cell{sign * i, dy * step}
				place(next)
				connect(prev, next)
				prev = next
			}
			tips = append(tips, prev)
		}
	}

	g := &dungeon.Graph{
		Start: roomID(cell{0, 0}),
		Rooms: make(map[dungeon.RoomID]dungeon.Room, len(occupied)),
	}
	tipSet := make(map[cell]bool, len(tips))
	for _, t := range tips {
		tipSet[t] = true
	}
	for c := range occupied {
		room := dungeon.Room{
			ID:       roomID(c),
			X:        c.x,
			Y:        c.y,
			Landable: tipSet[c] || (c != cell{0, 0} && rng.Intn(100) < opts.LandableChance),
		}
		for _, n := range edges[c] {
			room.Ways = append(room.Ways, wayTo(c, n))
		}
		sortWays(room.Ways)
		g.Rooms[room.ID] = room
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("generator produced an invalid graph: %w", err)
	}
	return g, nil
}

func roomID(c cell) dungeon.RoomID {
	return dungeon.RoomID(fmt.Sprintf("%d.%d", c.x, c.y))
}

func wayTo(from, to cell) dungeon.Direction {
	switch {
	case to.x > from.x:
		return dungeon.Right
	case to.x < from.x:
		return dungeon.Left
	case to.y > from.y:
		return dungeon.Down
	default:
		return dungeon.Up
	}
}

// sortWays orders ways in menu order so generated files diff cleanly.
func sortWays(ways []dungeon.Direction) {
	rank := map[dungeon.Direction]int{dungeon.Up: 0, dungeon.Down: 1, dungeon.Left: 2, dungeon.Right: 3}
	for i := 1; i < len(ways); i++ {
		for j := i; j > 0 && rank[ways[j]] < rank[ways[j-1]]; j-- {
			ways[j], ways[j-1] = ways[j-1], ways[j]
		}
	}
}
