package pairing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pcanellas/jornada-sync/models"
)

func roster(numbers ...int) map[int]models.Pair {
	out := make(map[int]models.Pair, len(numbers))
	for _, n := range numbers {
		out[n] = models.Pair{PairNumber: n}
	}
	return out
}

// TestOpponents_ExcludesPlayedSeatedAndSelf is the eligibility rule.
func TestOpponents_ExcludesPlayedSeatedAndSelf(t *testing.T) {
	pairs := roster(1, 2, 3, 4, 5)
	matches := []models.MatchRecord{
		{ID: "m1", PairA: 1, PairB: 2},
	}
	live := map[models.LiveKey]models.LiveScore{
		models.NewLiveKey(3, 4): {PairA: 3, PairB: 4},
	}

	got := Opponents(1, pairs, matches, live)

	// 2 already played, 3 and 4 seated, 1 is self.
	assert.Equal(t, []int{5}, got)
}

// TestOpponents_FreshTournament lists everyone else.
func TestOpponents_FreshTournament(t *testing.T) {
	got := Opponents(2, roster(1, 2, 3), nil, nil)

	assert.Equal(t, []int{1, 3}, got)
}

// TestDraw_ProducesValidTables checks the proposed round: canonical
// keys, no pair twice, no repeated pairing, no seated pair.
func TestDraw_ProducesValidTables(t *testing.T) {
	pairs := roster(1, 2, 3, 4, 5, 6)
	matches := []models.MatchRecord{
		{ID: "m1", PairA: 1, PairB: 2},
		{ID: "m2", PairA: 3, PairB: 4},
	}
	live := map[models.LiveKey]models.LiveScore{
		models.NewLiveKey(5, 6): {PairA: 5, PairB: 6},
	}
	rng := rand.New(rand.NewSource(7))

	tables := Draw(pairs, matches, live, rng)

	used := map[int]bool{}
	for _, tbl := range tables {
		assert.Less(t, tbl.PairA, tbl.PairB, "tables use canonical order")
		assert.False(t, used[tbl.PairA] || used[tbl.PairB], "a pair sits at one table at most")
		used[tbl.PairA] = true
		used[tbl.PairB] = true
		assert.NotEqual(t, Table{PairA: 1, PairB: 2}, tbl, "already played")
		assert.NotEqual(t, Table{PairA: 3, PairB: 4}, tbl, "already played")
		assert.False(t, used[5] || used[6], "seated pairs are skipped")
	}
}

// TestDraw_NothingEligible returns no tables.
func TestDraw_NothingEligible(t *testing.T) {
	pairs := roster(1, 2)
	matches := []models.MatchRecord{{ID: "m1", PairA: 1, PairB: 2}}
	rng := rand.New(rand.NewSource(1))

	assert.Empty(t, Draw(pairs, matches, nil, rng))
}
