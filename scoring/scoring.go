// Package scoring holds the deterministic domino scoring rules: the
// termination classifier and the standings arithmetic. Nothing here
// touches the store or the sync machinery.
package scoring

import (
	"sort"

	"github.com/pcanellas/jornada-sync/models"
)

const (
	// TargetScore is the score a side plays to within one match.
	TargetScore = 100

	// ZapateroThreshold is the losing score below which the match
	// counts as a shutout ("zapatero"). A losing score of zero is a
	// double zapatero.
	ZapateroThreshold = 30

	WinPoints           = 3
	ZapateroBonus       = 1
	DoubleZapateroBonus = 2
)

// Classify derives the termination type of a finished match from the
// losing side's final score.
func Classify(scoreA, scoreB int) models.TerminationType {
	loser := scoreA
	if scoreB < loser {
		loser = scoreB
	}
	switch {
	case loser == 0:
		return models.TerminationDoubleZapatero
	case loser < ZapateroThreshold:
		return models.TerminationZapatero
	default:
		return models.TerminationNormal
	}
}

// WinnerPoints returns the standings points the winning side earns
// for a match with the given termination type.
func WinnerPoints(t models.TerminationType) int {
	switch t {
	case models.TerminationDoubleZapatero:
		return WinPoints + DoubleZapateroBonus
	case models.TerminationZapatero:
		return WinPoints + ZapateroBonus
	default:
		return WinPoints
	}
}

// StandingsRow is one pair's line in the round-robin table.
type StandingsRow struct {
	PairNumber    int      `json:"pair_number"`
	Players       []string `json:"players"`
	Played        int      `json:"played"`
	Won           int      `json:"won"`
	Lost          int      `json:"lost"`
	PointsFor     int      `json:"points_for"`
	PointsAgainst int      `json:"points_against"`
	Zapateros     int      `json:"zapateros"`
	Points        int      `json:"points"`
}

// Standings computes the table from the full match history. Ordering:
// points desc, then point differential desc, then pair number asc.
// Drawn matches do not exist in this game; equal scores would mean a
// mis-entered result and are counted as a win for side A.
func Standings(pairs map[int]models.Pair, matches []models.MatchRecord) []StandingsRow {
	rows := make(map[int]*StandingsRow, len(pairs))
	for n, p := range pairs {
		rows[n] = &StandingsRow{PairNumber: n, Players: p.Names()}
	}

	byNumber := func(n int) *StandingsRow {
		if r, ok := rows[n]; ok {
			return r
		}
		// Match against a pair that is no longer in the roster map,
		// keep the line so history still adds up.
		r := &StandingsRow{PairNumber: n}
		rows[n] = r
		return r
	}

	for _, m := range matches {
		a, b := byNumber(m.PairA), byNumber(m.PairB)
		a.Played++
		b.Played++
		a.PointsFor += m.ScoreA
		a.PointsAgainst += m.ScoreB
		b.PointsFor += m.ScoreB
		b.PointsAgainst += m.ScoreA

		winner, loser := a, b
		if m.ScoreB > m.ScoreA {
			winner, loser = b, a
		}
		winner.Won++
		loser.Lost++
		winner.Points += WinnerPoints(m.Termination)
		if m.Termination != models.TerminationNormal {
			winner.Zapateros++
		}
	}

	out := make([]StandingsRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		di := out[i].PointsFor - out[i].PointsAgainst
		dj := out[j].PointsFor - out[j].PointsAgainst
		if di != dj {
			return di > dj
		}
		return out[i].PairNumber < out[j].PairNumber
	})
	return out
}
