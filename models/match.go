package models

import "time"

type TerminationType string

const (
	TerminationNormal         TerminationType = "normal"
	TerminationZapatero       TerminationType = "zapatero"
	TerminationDoubleZapatero TerminationType = "double_zapatero"
)

// MatchRecord is an immutable, append-only completed-match fact.
//
// PairAID/PairBID are the opaque remote identifiers carried by the
// remote row; PairA/PairB are the small pair numbers resolved through
// the identity mapping and are what the UI and business logic use.
// The names snapshots are denormalized on purpose so a record stays
// displayable even if a roster row cannot be fetched.
type MatchRecord struct {
	ID           string          `json:"id"`
	TournamentID string          `json:"tournament_id"`
	PairAID      string          `json:"pair_a_id"`
	PairBID      string          `json:"pair_b_id"`
	PairA        int             `json:"pair_a"`
	PairB        int             `json:"pair_b"`
	ScoreA       int             `json:"score_a"`
	ScoreB       int             `json:"score_b"`
	HandsA       int             `json:"hands_a"`
	HandsB       int             `json:"hands_b"`
	Termination  TerminationType `json:"termination_type"`
	PairANames   []string        `json:"pair_a_names"`
	PairBNames   []string        `json:"pair_b_names"`
	CreatedAt    time.Time       `json:"created_at"`
}
