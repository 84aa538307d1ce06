package models

import "time"

type TournamentStatus string

const (
	TournamentStatusActive   TournamentStatus = "active"
	TournamentStatusFinished TournamentStatus = "finished"
)

// Tournament is one playing session ("jornada"). It exists remotely
// exactly once and is referenced by the active-pointer singleton for
// as long as it is the session every table should be scoring against.
type Tournament struct {
	ID        string           `json:"id"`
	HostName  string           `json:"host_name"`
	Status    TournamentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}
