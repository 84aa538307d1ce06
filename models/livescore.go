package models

import "time"

// LiveKey identifies an in-progress match by its unordered pair of
// pair numbers. Keys are always canonical: the numerically smaller
// pair number is side A, so (3,1) and (1,3) address the same match.
type LiveKey struct {
	PairA int `json:"pair_a"`
	PairB int `json:"pair_b"`
}

// NewLiveKey builds the canonical key for any ordering of x and y.
func NewLiveKey(x, y int) LiveKey {
	if x > y {
		x, y = y, x
	}
	return LiveKey{PairA: x, PairB: y}
}

// LiveScore is the ephemeral, upserted-in-place running tally of an
// in-progress match. HandNumber doubles as a state discriminator:
// 0 means seated but not yet scoring, >0 means actively playing.
type LiveScore struct {
	TournamentID string    `json:"tournament_id"`
	PairA        int       `json:"pair_a"`
	PairB        int       `json:"pair_b"`
	ScoreA       int       `json:"score_a"`
	ScoreB       int       `json:"score_b"`
	HandNumber   int       `json:"hand_number"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Key returns the canonical live key for this entry.
func (ls LiveScore) Key() LiveKey {
	return NewLiveKey(ls.PairA, ls.PairB)
}

// Normalized returns a copy with the smaller pair number as side A,
// swapping the scores along with the sides when needed.
func (ls LiveScore) Normalized() LiveScore {
	if ls.PairA > ls.PairB {
		ls.PairA, ls.PairB = ls.PairB, ls.PairA
		ls.ScoreA, ls.ScoreB = ls.ScoreB, ls.ScoreA
	}
	return ls
}

// StaleAt reports whether the entry should be treated as absent at
// the given instant. A device that crashed mid-match stops refreshing
// UpdatedAt; past the threshold the row is a ghost, not a match.
func (ls LiveScore) StaleAt(now time.Time, threshold time.Duration) bool {
	if threshold <= 0 {
		return false
	}
	return now.Sub(ls.UpdatedAt) > threshold
}
