package services

import "errors"

// Errors shared across the service layer and mapped to HTTP statuses
// at the handler boundary.
var (
	ErrValidationFailed = errors.New("validation failed")

	ErrSetupIncomplete    = errors.New("tournament setup is not complete")
	ErrSetupFailed        = errors.New("tournament setup failed")
	ErrTournamentActive   = errors.New("a tournament is already active")
	ErrNoActiveTournament = errors.New("no active tournament")

	ErrPairNotFound  = errors.New("pair not found in roster")
	ErrPairUnmapped  = errors.New("pair has no remote id mapping")
	ErrSamePair      = errors.New("a pair cannot play itself")
	ErrAlreadyPlayed = errors.New("pairs have already played each other")
	ErrTableBusy     = errors.New("pair is already seated at a table")
	ErrNotSeated     = errors.New("pairs are not seated at a table")
)
