package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pcanellas/jornada-sync/db"
	"github.com/pcanellas/jornada-sync/models"
)

// NOTIFY channels fed by the row triggers cmd/migrate installs.
const (
	chanPointer = "jornada_pointer"
	chanMatches = "jornada_matches"
	chanLive    = "jornada_live"
)

const listenerPingInterval = 90 * time.Second

// wireChange is the trigger payload. Old is only populated on DELETE
// and only when the row fit the notification size limit; consumers
// must not rely on it.
type wireChange struct {
	Op  Op              `json:"op"`
	Row json.RawMessage `json:"row"`
	Old json.RawMessage `json:"old"`
}

type pointerRow struct {
	Key          string  `json:"key"`
	TournamentID *string `json:"tournament_id"`
}

type liveRow struct {
	TournamentID string    `json:"tournament_id"`
	PairA        int       `json:"pair_a"`
	PairB        int       `json:"pair_b"`
	ScoreA       int       `json:"score_a"`
	ScoreB       int       `json:"score_b"`
	HandNumber   int       `json:"hand_number"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r liveRow) toModel() models.LiveScore {
	return models.LiveScore{
		TournamentID: r.TournamentID,
		PairA:        r.PairA,
		PairB:        r.PairB,
		ScoreA:       r.ScoreA,
		ScoreB:       r.ScoreB,
		HandNumber:   r.HandNumber,
		UpdatedAt:    r.UpdatedAt,
	}
}

type matchRow struct {
	ID           string    `json:"id"`
	TournamentID string    `json:"tournament_id"`
	PairAID      string    `json:"pair_a_id"`
	PairBID      string    `json:"pair_b_id"`
	ScoreA       int       `json:"score_a"`
	ScoreB       int       `json:"score_b"`
	HandsA       int       `json:"hands_a"`
	HandsB       int       `json:"hands_b"`
	Termination  string    `json:"termination_type"`
	PairANames   []string  `json:"pair_a_names"`
	PairBNames   []string  `json:"pair_b_names"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r matchRow) toModel() models.MatchRecord {
	return models.MatchRecord{
		ID:           r.ID,
		TournamentID: r.TournamentID,
		PairAID:      r.PairAID,
		PairBID:      r.PairBID,
		ScoreA:       r.ScoreA,
		ScoreB:       r.ScoreB,
		HandsA:       r.HandsA,
		HandsB:       r.HandsB,
		Termination:  models.TerminationType(r.Termination),
		PairANames:   r.PairANames,
		PairBNames:   r.PairBNames,
		CreatedAt:    r.CreatedAt,
	}
}

// listen opens a dedicated LISTEN connection on one channel and
// dispatches decoded payloads until the context ends or the returned
// teardown runs. A nil notification marks a listener reconnect;
// anything sent while disconnected is gone, which is fine because the
// polling loops re-read the tables anyway.
func (p *Postgres) listen(ctx context.Context, channel string, handle func(wireChange)) (Unsubscribe, error) {
	l := db.NewListener(p.dsn, p.logger)
	if err := l.Listen(channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	done := make(chan struct{})
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			close(done)
			if err := l.Close(); err != nil {
				p.logger.Warn("failed to close listener", slog.String("channel", channel), slog.Any("error", err))
			}
		})
	}

	go func() {
		ping := time.NewTicker(listenerPingInterval)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				unsub()
				return
			case <-done:
				return
			case n := <-l.NotificationChannel():
				if n == nil {
					continue
				}
				var ch wireChange
				if err := json.Unmarshal([]byte(n.Extra), &ch); err != nil {
					p.logger.Warn("undecodable notification",
						slog.String("channel", channel), slog.Any("error", err))
					continue
				}
				handle(ch)
			case <-ping.C:
				if err := l.Ping(); err != nil {
					p.logger.Warn("listener ping failed",
						slog.String("channel", channel), slog.Any("error", err))
				}
			}
		}
	}()

	return unsub, nil
}

func (p *Postgres) SubscribePointer(ctx context.Context, fn func(models.ActivePointer)) (Unsubscribe, error) {
	return p.listen(ctx, chanPointer, func(ch wireChange) {
		var row pointerRow
		if err := json.Unmarshal(ch.Row, &row); err != nil || row.Key != pointerKey {
			return
		}
		fn(models.ActivePointer{Found: true, TournamentID: row.TournamentID})
	})
}

func (p *Postgres) SubscribeMatches(ctx context.Context, tournamentID string, fn func(models.MatchRecord)) (Unsubscribe, error) {
	return p.listen(ctx, chanMatches, func(ch wireChange) {
		// The match feed is append-only; updates and deletes on it
		// are not part of the protocol.
		if ch.Op != OpInsert {
			return
		}
		var row matchRow
		if err := json.Unmarshal(ch.Row, &row); err != nil {
			p.logger.Warn("undecodable match notification", slog.Any("error", err))
			return
		}
		if row.TournamentID != tournamentID {
			return
		}
		fn(row.toModel())
	})
}

func (p *Postgres) SubscribeLiveScores(ctx context.Context, tournamentID string, fn func(LiveEvent)) (Unsubscribe, error) {
	return p.listen(ctx, chanLive, func(ch wireChange) {
		ev := LiveEvent{Op: ch.Op}

		if len(ch.Row) > 0 {
			var row liveRow
			if err := json.Unmarshal(ch.Row, &row); err != nil {
				p.logger.Warn("undecodable live notification", slog.Any("error", err))
				return
			}
			ev.Row = row.toModel()
		}
		if len(ch.Old) > 0 {
			var old liveRow
			if err := json.Unmarshal(ch.Old, &old); err == nil {
				m := old.toModel()
				ev.Old = &m
			}
		}

		switch {
		case ev.Op == OpDelete && ev.Old != nil:
			if ev.Old.TournamentID != tournamentID {
				return
			}
		case ev.Op == OpDelete:
			// No pre-image; the live poll will clean up instead.
			return
		default:
			if ev.Row.TournamentID != tournamentID {
				return
			}
		}
		fn(ev)
	})
}
