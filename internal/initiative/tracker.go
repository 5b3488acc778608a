// Package initiative implements the per-channel combat-initiative tracker:
// dexterity-ordered turns with a d100 tie-break roll, round bookkeeping, and
// the prio/react/stall adjustments.
package initiative

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Combatant is one entry in the initiative order.
type Combatant struct {
	Name      string
	Dexterity int
	Roll      int // d100 tie-breaker, rolled once on join
}

// Tracker holds one channel's combat state. It is not safe for concurrent use;
// the Manager serializes access per channel.
type Tracker struct {
	rng        *rand.Rand
	combatants []*Combatant
	turn       int
	round      int
	started    bool
	prio       map[string]int
	react      map[string]struct{}
	stall      map[string]struct{}
}

// NewTracker returns an empty tracker. Combat begins once Begin is called.
func NewTracker(rng *rand.Rand) *Tracker {
	return &Tracker{
		rng:   rng,
		round: 1,
		prio:  make(map[string]int),
		react: make(map[string]struct{}),
		stall: make(map[string]struct{}),
	}
}

// Join adds a character with its dexterity and rolls the d100 tie-breaker.
// Joining again under the same name replaces the earlier entry.
func (t *Tracker) Join(name string, dexterity int) *Combatant {
	t.remove(name)
	c := &Combatant{
		Name:      name,
		Dexterity: dexterity,
		Roll:      t.rng.Intn(100) + 1,
	}
	t.combatants = append(t.combatants, c)
	t.sortOrder()
	return c
}

// Remove drops a character from the order.
func (t *Tracker) Remove(name string) bool {
	ok := t.remove(name)
	if ok && t.turn >= len(t.combatants) {
		t.turn = 0
	}
	return ok
}

func (t *Tracker) remove(name string) bool {
	for i, c := range t.combatants {
		if c.Name == name {
			t.combatants = append(t.combatants[:i], t.combatants[i+1:]...)
			return true
		}
	}
	return false
}

// Begin locks in the first round's order and starts turn tracking.
func (t *Tracker) Begin() error {
	if len(t.combatants) == 0 {
		return fmt.Errorf("no characters are in the initiative order")
	}
	t.sortOrder()
	t.started = true
	t.turn = 0
	return nil
}

// Started reports whether Begin has been called.
func (t *Tracker) Started() bool { return t.started }

// Round returns the current round number, starting at 1.
func (t *Tracker) Round() int { return t.round }

// Current returns the combatant whose turn it is.
func (t *Tracker) Current() (*Combatant, error) {
	if !t.started || len(t.combatants) == 0 {
		return nil, fmt.Errorf("combat has not started")
	}
	return t.combatants[t.turn], nil
}

// Next ends the current turn. When the last combatant finishes, the round
// rolls over: prio and react adjustments are applied, the order re-sorted,
// and the one-round adjustment sets cleared.
func (t *Tracker) Next() (newRound bool, err error) {
	if !t.started || len(t.combatants) == 0 {
		return false, fmt.Errorf("combat has not started")
	}
	t.turn++
	if t.turn < len(t.combatants) {
		return false, nil
	}

	t.turn = 0
	t.round++
	for _, c := range t.combatants {
		if v, ok := t.prio[c.Name]; ok {
			c.Dexterity = v
		}
		if _, ok := t.react[c.Name]; ok {
			c.Dexterity = -1
		}
	}
	t.sortOrder()
	t.prio = make(map[string]int)
	t.react = make(map[string]struct{})
	t.stall = make(map[string]struct{})
	return true, nil
}

// Prio fixes a character's initiative to the given value for the next round.
func (t *Tracker) Prio(name string, value int) {
	t.prio[name] = value
}

// React sends a character to the bottom of the order for the next round.
func (t *Tracker) React(name string) {
	t.react[name] = struct{}{}
}

// Stall moves the current combatant to the end of this round's order and
// returns it. The displaced slot immediately belongs to the next combatant.
func (t *Tracker) Stall() (*Combatant, error) {
	c, err := t.Current()
	if err != nil {
		return nil, err
	}
	t.stall[c.Name] = struct{}{}
	t.combatants = append(t.combatants[:t.turn], t.combatants[t.turn+1:]...)
	t.combatants = append(t.combatants, c)
	return c, nil
}

// Order returns the current initiative order, top first.
func (t *Tracker) Order() []*Combatant {
	return t.combatants
}

// OrderMessage renders the round announcement.
func (t *Tracker) OrderMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Round %d Begins! ###\n", t.round)
	for i, c := range t.combatants {
		fmt.Fprintf(&b, "%d. %s (*%d*)\n", i+1, c.Name, c.Dexterity)
	}
	return strings.TrimSpace(b.String())
}

func (t *Tracker) sortOrder() {
	sort.SliceStable(t.combatants, func(i, j int) bool {
		a, b := t.combatants[i], t.combatants[j]
		if a.Dexterity != b.Dexterity {
			return a.Dexterity > b.Dexterity
		}
		return a.Roll > b.Roll
	})
}
