package dungeon

import "math/rand"

// StairsFilter narrows the candidate set for stairs placement beyond the base
// eligibility predicate. A nil filter accepts every landable room.
type StairsFilter func(Room) bool

// Step translates the source room's coordinates by the direction's unit vector
// and returns the room occupying the destination cell. The second return is
// false when no room exists there.
func Step(g *Graph, from RoomID, dir Direction) (RoomID, bool) {
	room, ok := g.Rooms[from]
	if !ok {
		return "", false
	}
	dx, dy := dir.Offset()
	dest, ok := g.RoomAt(room.X+dx, room.Y+dy)
	if !ok {
		return "", false
	}
	return dest.ID, true
}

// PickStairsRoom selects, uniformly at random, a landable room other than
// exclude to host the floor's staircase. The optional filter further restricts
// candidates; callers that must always seed stairs retry without it. Returns
// false when no candidate survives.
func PickStairsRoom(rng *rand.Rand, g *Graph, exclude RoomID, filter StairsFilter) (RoomID, bool) {
	var candidates []RoomID
	for _, id := range g.SortedRoomIDs() {
		room := g.Rooms[id]
		if !room.Landable || id == exclude {
			continue
		}
		if filter != nil && !filter(room) {
			continue
		}
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rng.Intn(len(candidates))], true
}
