package models

// Pair is a roster entry: two players identified by a small stable
// pair number (host-assigned, unique within a tournament) and by an
// opaque id generated by the remote store. Pairs are created at setup
// and immutable until the tournament is reset.
type Pair struct {
	ID           string `json:"id"`
	TournamentID string `json:"tournament_id"`
	PairNumber   int    `json:"pair_number"`
	Player1Name  string `json:"player1_name"`
	Player2Name  string `json:"player2_name"`
}

// Names returns the denormalized names snapshot used on match records.
func (p Pair) Names() []string {
	return []string{p.Player1Name, p.Player2Name}
}
