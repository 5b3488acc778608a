package crawl

import (
	"errors"
	"math/rand"
	"sort"
)

// ErrNoVotes signals a tally over an empty ballot. The state machine only
// resolves once every player has voted, so reaching it means the phase
// contract was broken upstream.
var ErrNoVotes = errors.New("no votes to tally")

// Tally counts one choice per player and returns the winner. Ties on the
// maximum count are broken by a uniform random pick among the tied choices.
func Tally(rng *rand.Rand, votes map[PlayerID]Choice) (Choice, error) {
	if len(votes) == 0 {
		return "", ErrNoVotes
	}

	counts := make(map[Choice]int)
	for _, c := range votes {
		counts[c]++
	}

	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}

	var best []Choice
	for c, n := range counts {
		if n == max {
			best = append(best, c)
		}
	}
	// Stable order before the random pick keeps seeded runs reproducible.
	sort.Slice(best, func(i, j int) bool { return best[i] < best[j] })

	return best[rng.Intn(len(best))], nil
}
