package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestNewLiveKey_Canonical checks both orderings yield the same key.
func TestNewLiveKey_Canonical(t *testing.T) {
	assert.Equal(t, NewLiveKey(1, 3), NewLiveKey(3, 1))
	assert.Equal(t, LiveKey{PairA: 1, PairB: 3}, NewLiveKey(3, 1))
}

// TestLiveScore_Normalized_SwapsScoresWithSides checks that putting
// the smaller pair first carries the scores along.
func TestLiveScore_Normalized_SwapsScoresWithSides(t *testing.T) {
	ls := LiveScore{PairA: 5, PairB: 2, ScoreA: 70, ScoreB: 40}.Normalized()

	assert.Equal(t, 2, ls.PairA)
	assert.Equal(t, 5, ls.PairB)
	assert.Equal(t, 40, ls.ScoreA)
	assert.Equal(t, 70, ls.ScoreB)
}

// TestLiveScore_Normalized_NoopWhenCanonical checks an already
// canonical entry is unchanged.
func TestLiveScore_Normalized_NoopWhenCanonical(t *testing.T) {
	ls := LiveScore{PairA: 2, PairB: 5, ScoreA: 40, ScoreB: 70}

	assert.Equal(t, ls, ls.Normalized())
}

// TestLiveScore_StaleAt checks the freshness threshold.
func TestLiveScore_StaleAt(t *testing.T) {
	now := time.Now()
	ls := LiveScore{UpdatedAt: now.Add(-3 * time.Hour)}

	assert.True(t, ls.StaleAt(now, 2*time.Hour))
	assert.False(t, ls.StaleAt(now, 4*time.Hour))
	assert.False(t, ls.StaleAt(now, 0), "zero threshold disables staleness")
}

// TestActivePointer_Active covers presence vs nullness.
func TestActivePointer_Active(t *testing.T) {
	id := "t-1"
	empty := ""

	assert.False(t, ActivePointer{}.Active(), "row absent")
	assert.False(t, ActivePointer{Found: true}.Active(), "row present, value null")
	assert.False(t, ActivePointer{Found: true, TournamentID: &empty}.Active())
	assert.True(t, ActivePointer{Found: true, TournamentID: &id}.Active())
	assert.Equal(t, "t-1", ActivePointer{Found: true, TournamentID: &id}.ID())
	assert.Equal(t, "", ActivePointer{Found: true}.ID())
}
