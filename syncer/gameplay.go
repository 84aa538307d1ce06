package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pcanellas/jornada-sync/models"
	"github.com/pcanellas/jornada-sync/store"
)

// runSession is Loop B for one tournament identity: push
// subscriptions on matches and live scores, a tight authoritative
// live poll, and a looser match poll as a missed-event safety net.
// Everything here dies with the session context.
func (e *Engine) runSession(ctx context.Context, id string) {
	unsubMatches, err := e.cfg.Store.SubscribeMatches(ctx, id, func(rec models.MatchRecord) {
		e.onMatchEvent(id, rec)
	})
	if err != nil {
		e.cfg.Logger.Warn("match subscription unavailable, relying on polling",
			slog.String("tournament_id", id), slog.Any("error", err))
	} else {
		defer unsubMatches()
	}

	unsubLive, err := e.cfg.Store.SubscribeLiveScores(ctx, id, func(ev store.LiveEvent) {
		e.onLiveEvent(id, ev)
	})
	if err != nil {
		e.cfg.Logger.Warn("live subscription unavailable, relying on polling",
			slog.String("tournament_id", id), slog.Any("error", err))
	} else {
		defer unsubLive()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(e.cfg.LivePoll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				e.pollLive(ctx, id)
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(e.cfg.MatchPoll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				e.catchUpMatches(ctx, id)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		e.cfg.Logger.Warn("gameplay session ended",
			slog.String("tournament_id", id), slog.Any("error", err))
	}
}

func (e *Engine) onMatchEvent(id string, rec models.MatchRecord) {
	if e.cfg.State.Resetting() || e.cfg.State.TournamentID() != id {
		return
	}
	pm := e.cfg.State.PairMap()
	if pm.Len() == 0 {
		// Not hydrated yet; the catch-up poll will pick it up.
		return
	}
	translated, err := translateMatch(pm, rec)
	if err != nil {
		e.cfg.Logger.Warn("skipping pushed match with unmapped pair",
			slog.String("match_id", rec.ID), slog.Any("error", err))
		return
	}
	if e.cfg.State.MergeRemoteMatch(id, translated) {
		e.notifyChange()
	}
}

func (e *Engine) onLiveEvent(id string, ev store.LiveEvent) {
	if e.cfg.State.Resetting() || e.cfg.State.TournamentID() != id {
		return
	}
	switch ev.Op {
	case store.OpInsert, store.OpUpdate:
		e.cfg.State.UpsertLiveScore(ev.Row)
	case store.OpDelete:
		// Only actionable with the pre-image; otherwise the
		// authoritative live poll removes it within one interval.
		if ev.Old != nil {
			e.cfg.State.RemoveLiveScore(ev.Old.PairA, ev.Old.PairB)
		}
	}
	e.notifyChange()
}

// pollLive fetches the complete live table for the tournament and
// replaces the local map with it. This full-replacement snapshot is
// the primary defense against ghost occupied tables. A tick from a
// session whose identity is no longer the local one is inert, so a
// reset that raced the session cannot be undone by its next poll.
func (e *Engine) pollLive(ctx context.Context, id string) {
	if e.cfg.State.TournamentID() != id {
		return
	}
	rows, err := e.cfg.Store.ListLiveScores(ctx, id)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.cfg.Logger.Warn("live poll failed",
				slog.String("tournament_id", id), slog.Any("error", err))
		}
		return
	}
	list := make([]models.LiveScore, 0, len(rows))
	for _, r := range rows {
		list = append(list, *r)
	}
	e.cfg.State.SetLiveScores(id, list)
	e.notifyChange()
}
