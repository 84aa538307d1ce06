package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/pcanellas/jornada-sync/models"
)

const pointerKey = "active"

type Postgres struct {
	db     *sql.DB
	dsn    string
	logger *slog.Logger
}

// NewPostgres wraps an open pool. The DSN is kept for the dedicated
// LISTEN connections, which cannot share the pool.
func NewPostgres(db *sql.DB, dsn string, logger *slog.Logger) *Postgres {
	return &Postgres{db: db, dsn: dsn, logger: logger}
}

func (p *Postgres) FetchActivePointer(ctx context.Context) (models.ActivePointer, error) {
	query := `SELECT tournament_id FROM jornada_pointer WHERE key = $1`

	var id sql.NullString
	err := p.db.QueryRowContext(ctx, query, pointerKey).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ActivePointer{Found: false}, nil
		}
		return models.ActivePointer{}, fmt.Errorf("failed to fetch active pointer: %w", err)
	}

	ptr := models.ActivePointer{Found: true}
	if id.Valid {
		ptr.TournamentID = &id.String
	}
	return ptr, nil
}

func (p *Postgres) SetActivePointer(ctx context.Context, tournamentID string) error {
	query := `
		INSERT INTO jornada_pointer (key, tournament_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
			SET tournament_id = EXCLUDED.tournament_id, updated_at = now()`

	if _, err := p.db.ExecContext(ctx, query, pointerKey, tournamentID); err != nil {
		return fmt.Errorf("failed to set active pointer: %w", err)
	}
	return nil
}

func (p *Postgres) ClearActivePointer(ctx context.Context) error {
	query := `
		INSERT INTO jornada_pointer (key, tournament_id, updated_at)
		VALUES ($1, NULL, now())
		ON CONFLICT (key) DO UPDATE
			SET tournament_id = NULL, updated_at = now()`

	if _, err := p.db.ExecContext(ctx, query, pointerKey); err != nil {
		return fmt.Errorf("failed to clear active pointer: %w", err)
	}
	return nil
}

func (p *Postgres) CreateTournament(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (id, host_name, status)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := p.db.QueryRowContext(ctx, query, t.ID, t.HostName, t.Status).Scan(&t.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrTournamentConflict
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (p *Postgres) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	query := `SELECT id, host_name, status, created_at FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := p.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.HostName, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %s: %w", id, err)
	}
	return t, nil
}

// CreatePairs inserts the whole roster in one transaction; the store
// assigns the opaque ids and they are written back into the slice.
func (p *Postgres) CreatePairs(ctx context.Context, pairs []*models.Pair) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin pairs transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO pairs (tournament_id, pair_number, player1_name, player2_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for _, pair := range pairs {
		err := tx.QueryRowContext(ctx, query,
			pair.TournamentID,
			pair.PairNumber,
			pair.Player1Name,
			pair.Player2Name,
		).Scan(&pair.ID)
		if err != nil {
			return p.handlePairError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pairs transaction: %w", err)
	}
	return nil
}

func (p *Postgres) handlePairError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrPairConflict
		case "23503":
			return ErrPairInvalid
		}
	}
	return fmt.Errorf("failed to insert pair: %w", err)
}

func (p *Postgres) ListPairs(ctx context.Context, tournamentID string) ([]*models.Pair, error) {
	query := `
		SELECT id, tournament_id, pair_number, player1_name, player2_name
		FROM pairs
		WHERE tournament_id = $1
		ORDER BY pair_number ASC`

	rows, err := p.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	pairs := make([]*models.Pair, 0)
	for rows.Next() {
		var pair models.Pair
		if scanErr := rows.Scan(
			&pair.ID,
			&pair.TournamentID,
			&pair.PairNumber,
			&pair.Player1Name,
			&pair.Player2Name,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan pair row: %w", scanErr)
		}
		pairs = append(pairs, &pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating pair rows: %w", err)
	}
	return pairs, nil
}

// InsertMatch writes one immutable completed-match fact. The id comes
// from the caller so the optimistic local copy, the notification and
// the poll fetch all dedup against the same identity.
func (p *Postgres) InsertMatch(ctx context.Context, m *models.MatchRecord) error {
	query := `
		INSERT INTO matches
			(id, tournament_id, pair_a_id, pair_b_id, score_a, score_b,
			 hands_a, hands_b, termination_type, pair_a_names, pair_b_names)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	err := p.db.QueryRowContext(ctx, query,
		m.ID,
		m.TournamentID,
		m.PairAID,
		m.PairBID,
		m.ScoreA,
		m.ScoreB,
		m.HandsA,
		m.HandsB,
		m.Termination,
		pq.Array(m.PairANames),
		pq.Array(m.PairBNames),
	).Scan(&m.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return ErrMatchConflict
			case "23503":
				return ErrMatchInvalid
			}
		}
		return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
	}
	return nil
}

func (p *Postgres) ListMatches(ctx context.Context, tournamentID string) ([]*models.MatchRecord, error) {
	query := `
		SELECT id, tournament_id, pair_a_id, pair_b_id, score_a, score_b,
		       hands_a, hands_b, termination_type, pair_a_names, pair_b_names, created_at
		FROM matches
		WHERE tournament_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := p.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.MatchRecord, 0)
	for rows.Next() {
		var m models.MatchRecord
		if scanErr := rows.Scan(
			&m.ID,
			&m.TournamentID,
			&m.PairAID,
			&m.PairBID,
			&m.ScoreA,
			&m.ScoreB,
			&m.HandsA,
			&m.HandsB,
			&m.Termination,
			pq.Array(&m.PairANames),
			pq.Array(&m.PairBNames),
			&m.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating match rows: %w", err)
	}
	return matches, nil
}

// UpsertLiveScore overwrites the running tally in place. The schema
// rejects non-canonical keys, so the entry is normalized first.
func (p *Postgres) UpsertLiveScore(ctx context.Context, ls *models.LiveScore) error {
	n := ls.Normalized()

	query := `
		INSERT INTO live_matches
			(tournament_id, pair_a, pair_b, score_a, score_b, hand_number, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (tournament_id, pair_a, pair_b) DO UPDATE
			SET score_a = EXCLUDED.score_a,
			    score_b = EXCLUDED.score_b,
			    hand_number = EXCLUDED.hand_number,
			    updated_at = now()`

	_, err := p.db.ExecContext(ctx, query,
		n.TournamentID, n.PairA, n.PairB, n.ScoreA, n.ScoreB, n.HandNumber)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23514":
				return ErrLiveNotCanonical
			case "23503":
				return ErrLiveInvalid
			}
		}
		return fmt.Errorf("failed to upsert live score %d-%d: %w", n.PairA, n.PairB, err)
	}
	return nil
}

// DeleteLiveScore is idempotent: deleting an already-absent row is
// not an error, another device may have cleaned it up first.
func (p *Postgres) DeleteLiveScore(ctx context.Context, tournamentID string, key models.LiveKey) error {
	query := `DELETE FROM live_matches WHERE tournament_id = $1 AND pair_a = $2 AND pair_b = $3`

	if _, err := p.db.ExecContext(ctx, query, tournamentID, key.PairA, key.PairB); err != nil {
		return fmt.Errorf("failed to delete live score %d-%d: %w", key.PairA, key.PairB, err)
	}
	return nil
}

func (p *Postgres) ListLiveScores(ctx context.Context, tournamentID string) ([]*models.LiveScore, error) {
	query := `
		SELECT tournament_id, pair_a, pair_b, score_a, score_b, hand_number, updated_at
		FROM live_matches
		WHERE tournament_id = $1
		ORDER BY pair_a ASC, pair_b ASC`

	rows, err := p.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query live scores for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	scores := make([]*models.LiveScore, 0)
	for rows.Next() {
		var ls models.LiveScore
		if scanErr := rows.Scan(
			&ls.TournamentID,
			&ls.PairA,
			&ls.PairB,
			&ls.ScoreA,
			&ls.ScoreB,
			&ls.HandNumber,
			&ls.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan live score row: %w", scanErr)
		}
		scores = append(scores, &ls)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating live score rows: %w", err)
	}
	return scores, nil
}
