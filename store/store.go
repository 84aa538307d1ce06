// Package store is the remote store adapter: typed reads and writes
// against the shared Postgres instance, plus per-table change
// subscriptions over LISTEN/NOTIFY. Every operation is fallible and
// context-bound; callers never treat a subscription as the sole
// source of truth, notifications are a latency optimization on top
// of the polling reads.
package store

import (
	"context"
	"errors"

	"github.com/pcanellas/jornada-sync/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentConflict = errors.New("tournament already exists")
	ErrPairConflict       = errors.New("pair number already taken in this tournament")
	ErrPairInvalid        = errors.New("pair references an unknown tournament")
	ErrMatchConflict      = errors.New("match record with this id already exists")
	ErrMatchInvalid       = errors.New("match references an unknown tournament or pair")
	ErrLiveNotCanonical   = errors.New("live score key is not in canonical order")
	ErrLiveInvalid        = errors.New("live score references an unknown tournament")
)

// Op tags a change notification.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// LiveEvent is a change on the live-score table. Old carries the
// pre-image on DELETE when the notifier managed to include it; it is
// best-effort only and consumers must survive its absence.
type LiveEvent struct {
	Op  Op
	Row models.LiveScore
	Old *models.LiveScore
}

// Unsubscribe tears down a subscription. Safe to call more than once.
type Unsubscribe func()

// RemoteStore is the full adapter contract. Ordering is only loosely
// guaranteed within one subscription; nothing is guaranteed across
// two of them.
type RemoteStore interface {
	FetchActivePointer(ctx context.Context) (models.ActivePointer, error)
	SetActivePointer(ctx context.Context, tournamentID string) error
	// ClearActivePointer sets the singleton's value to null. It never
	// deletes the row: explicit nullness is what other devices key
	// their self-reset on.
	ClearActivePointer(ctx context.Context) error

	CreateTournament(ctx context.Context, t *models.Tournament) error
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)

	CreatePairs(ctx context.Context, pairs []*models.Pair) error
	ListPairs(ctx context.Context, tournamentID string) ([]*models.Pair, error)

	InsertMatch(ctx context.Context, m *models.MatchRecord) error
	ListMatches(ctx context.Context, tournamentID string) ([]*models.MatchRecord, error)

	UpsertLiveScore(ctx context.Context, ls *models.LiveScore) error
	DeleteLiveScore(ctx context.Context, tournamentID string, key models.LiveKey) error
	ListLiveScores(ctx context.Context, tournamentID string) ([]*models.LiveScore, error)

	SubscribePointer(ctx context.Context, fn func(models.ActivePointer)) (Unsubscribe, error)
	SubscribeMatches(ctx context.Context, tournamentID string, fn func(models.MatchRecord)) (Unsubscribe, error)
	SubscribeLiveScores(ctx context.Context, tournamentID string, fn func(LiveEvent)) (Unsubscribe, error)
}
