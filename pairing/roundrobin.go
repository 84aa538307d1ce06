package pairing

import (
	"math/rand"
	"sort"

	"github.com/pcanellas/jornada-sync/models"
)

// Table is one proposed seating: two pairs assigned to play next.
type Table struct {
	PairA int `json:"pair_a"`
	PairB int `json:"pair_b"`
}

// played builds the set of unordered pairings already in the history.
func played(matches []models.MatchRecord) map[models.LiveKey]bool {
	out := make(map[models.LiveKey]bool, len(matches))
	for _, m := range matches {
		out[models.NewLiveKey(m.PairA, m.PairB)] = true
	}
	return out
}

// seated builds the set of pair numbers currently at a table.
func seated(live map[models.LiveKey]models.LiveScore) map[int]bool {
	out := make(map[int]bool, len(live)*2)
	for k := range live {
		out[k.PairA] = true
		out[k.PairB] = true
	}
	return out
}

// Opponents lists the pair numbers the given pair may face next:
// every roster pair it has not yet played and that is not currently
// seated. The result is sorted for stable display.
func Opponents(pair int, pairs map[int]models.Pair, matches []models.MatchRecord, live map[models.LiveKey]models.LiveScore) []int {
	done := played(matches)
	busy := seated(live)

	out := make([]int, 0, len(pairs))
	for n := range pairs {
		if n == pair || busy[n] || done[models.NewLiveKey(pair, n)] {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Draw proposes a random round of tables: a maximal set of pairings
// among unseated pairs that have not yet played each other. Greedy
// over a shuffled order; with ~8 pairs a perfect matching is not
// worth the extra machinery, the host re-draws leftovers by hand.
func Draw(pairs map[int]models.Pair, matches []models.MatchRecord, live map[models.LiveKey]models.LiveScore, rng *rand.Rand) []Table {
	done := played(matches)
	busy := seated(live)

	free := make([]int, 0, len(pairs))
	for n := range pairs {
		if !busy[n] {
			free = append(free, n)
		}
	}
	sort.Ints(free)
	rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })

	taken := make(map[int]bool, len(free))
	var tables []Table
	for i, a := range free {
		if taken[a] {
			continue
		}
		for _, b := range free[i+1:] {
			if taken[b] || done[models.NewLiveKey(a, b)] {
				continue
			}
			taken[a], taken[b] = true, true
			tables = append(tables, Table{PairA: min(a, b), PairB: max(a, b)})
			break
		}
	}
	return tables
}
