package models

import "time"

// SnapshotVersion guards the persisted blob format. A mismatch on
// load is treated the same as a corrupt file: fall back to defaults.
const SnapshotVersion = 1

// Snapshot is the versioned on-device copy of the local tournament
// state. Control flags (hydrated, resetting) are deliberately not
// part of it; they are recomputed fresh on every process start.
// Live scores are not persisted either, they are worthless after a
// restart and the next poll replaces them wholesale anyway.
type Snapshot struct {
	Version       int            `json:"version"`
	TournamentID  string         `json:"tournament_id"`
	HostName      string         `json:"host_name"`
	Pairs         map[int]Pair   `json:"pairs"`
	PairIDs       map[string]int `json:"pair_ids"`
	Matches       []MatchRecord  `json:"matches"`
	SetupComplete bool           `json:"setup_complete"`
	SavedAt       time.Time      `json:"saved_at"`
}

// EmptySnapshot returns an intentionally empty but valid snapshot.
// The nuclear reset writes this before deleting the file, so a reader
// racing the deletion sees "reset" rather than "never initialized".
func EmptySnapshot() Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Pairs:   map[int]Pair{},
		PairIDs: map[string]int{},
		Matches: []MatchRecord{},
		SavedAt: time.Now().UTC(),
	}
}
