package models

// ActivePointer is the fetched value of the active-tournament
// singleton. Row presence and value nullness are kept apart: a row
// that was never written and a row explicitly cleared by a reset are
// different facts, even though neither names an active tournament.
type ActivePointer struct {
	Found        bool
	TournamentID *string
}

// Active reports whether the pointer currently names a tournament.
func (p ActivePointer) Active() bool {
	return p.Found && p.TournamentID != nil && *p.TournamentID != ""
}

// ID returns the named tournament id, or "" when inactive.
func (p ActivePointer) ID() string {
	if !p.Active() {
		return ""
	}
	return *p.TournamentID
}
