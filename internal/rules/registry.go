package rules

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/suderio/delver/internal/dungeon"
)

// Difficulty selects the rule set applied to a crawl.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists every supported level in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty normalizes user input into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case Easy:
		return Easy, nil
	case Medium:
		return Medium, nil
	case Hard:
		return Hard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q (expected easy, medium or hard)", s)
}

// Default stairs-placement expressions per difficulty. Each is evaluated per
// candidate room; the base eligibility predicate (landable, not the party's
// current room) is always enforced in code before these run, so an expression
// can only narrow the pool, never widen it.
var defaultStairsExprs = map[Difficulty]string{
	Easy:   `room.landable`,
	Medium: `room.landable && (room.dist >= 2 || floor == 1)`,
	Hard:   `room.landable && room.dist >= 2 && room.degree <= 2`,
}

// Registry compiles and evaluates the CEL rule expressions driving
// difficulty-dependent behavior.
type Registry struct {
	env      *cel.Env
	stairs   map[Difficulty]cel.Program
}

// NewRegistry initializes the CEL environment with the crawl-specific
// variables and compiles the default rule set. Expressions in overrides
// replace defaults per difficulty; a broken override fails fast here rather
// than mid-crawl.
func NewRegistry(overrides map[Difficulty]string) (*Registry, error) {
	env, err := cel.NewEnv(
		cel.Variable("room", cel.MapType(cel.StringType, cel.AnyType)),
		cel.Variable("floor", cel.IntType),
		cel.Variable("difficulty", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build rules environment: %w", err)
	}

	r := &Registry{env: env, stairs: make(map[Difficulty]cel.Program)}
	for _, d := range Difficulties {
		expr := defaultStairsExprs[d]
		if o, ok := overrides[d]; ok && o != "" {
			expr = o
		}
		prog, err := r.compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid stairs rule for %s: %w", d, err)
		}
		r.stairs[d] = prog
	}
	return r, nil
}

func (r *Registry) compile(expression string) (cel.Program, error) {
	ast, iss := r.env.Compile(expression)
	if iss.Err() != nil {
		return nil, iss.Err()
	}
	return r.env.Program(ast)
}

// StairsFilter produces the dungeon filter for one difficulty on one floor.
// Evaluation errors reject the room; the crawl retries without the filter when
// nothing qualifies, so a hostile expression cannot strand a floor.
func (r *Registry) StairsFilter(d Difficulty, g *dungeon.Graph, floor int) dungeon.StairsFilter {
	prog, ok := r.stairs[d]
	if !ok {
		return nil
	}
	start := g.Rooms[g.Start]
	return func(room dungeon.Room) bool {
		out, _, err := prog.Eval(map[string]any{
			"room":       contextFromRoom(room, start),
			"floor":      floor,
			"difficulty": string(d),
		})
		if err != nil {
			return false
		}
		pass, ok := out.Value().(bool)
		return ok && pass
	}
}

// contextFromRoom converts a room into a map suitable for CEL evaluation.
// dist is the Manhattan distance from the floor's starting room; degree is the
// number of passages leaving the room.
func contextFromRoom(room, start dungeon.Room) map[string]any {
	dx := room.X - start.X
	if dx < 0 {
		dx = -dx
	}
	dy := room.Y - start.Y
	if dy < 0 {
		dy = -dy
	}
	return map[string]any{
		"id":       string(room.ID),
		"landable": room.Landable,
		"degree":   len(room.Ways),
		"dist":     dx + dy,
		"x":        room.X,
		"y":        room.Y,
	}
}
