// Package syncer binds the local tournament state to the remote
// store. Two cooperating loops: the pointer loop tracks the
// active-tournament singleton (and triggers hydration or the nuclear
// reset), and a per-identity gameplay session tracks completed
// matches and live scores. Push subscriptions are layered over
// fixed-interval polls; the polls are the authority.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pcanellas/jornada-sync/models"
	"github.com/pcanellas/jornada-sync/pairing"
	"github.com/pcanellas/jornada-sync/state"
	"github.com/pcanellas/jornada-sync/store"
)

const (
	defaultPointerPoll = 5 * time.Second
	defaultMatchPoll   = 5 * time.Second
	// Live staleness is the most visible kind mid-game, so its poll
	// runs tighter than the others.
	defaultLivePoll = 2 * time.Second
)

type Config struct {
	Store  store.RemoteStore
	State  *state.TournamentState
	Logger *slog.Logger

	PointerPoll time.Duration
	MatchPoll   time.Duration
	LivePoll    time.Duration

	// OnReset fires after a remotely initiated teardown has been
	// applied locally; the agent uses it to force the UI to reload.
	OnReset func()
	// OnChange fires after inbound data changed the local state.
	OnChange func()
}

type Engine struct {
	cfg Config

	// evalMu serializes pointer evaluations from the poll ticker and
	// the push subscription.
	evalMu sync.Mutex

	mu      sync.Mutex
	session *gameplaySession
}

func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PointerPoll == 0 {
		cfg.PointerPoll = defaultPointerPoll
	}
	if cfg.MatchPoll == 0 {
		cfg.MatchPoll = defaultMatchPoll
	}
	if cfg.LivePoll == 0 {
		cfg.LivePoll = defaultLivePoll
	}
	return &Engine{cfg: cfg}
}

// Run drives the engine until the context ends. It always returns
// the context's error; individual remote failures are logged and
// absorbed, the next tick retries naturally.
func (e *Engine) Run(ctx context.Context) error {
	defer e.stopSession()

	// Mount-time evaluation before the first tick.
	e.pollPointer(ctx)

	unsub, err := e.cfg.Store.SubscribePointer(ctx, func(ptr models.ActivePointer) {
		e.evaluatePointer(ctx, ptr)
	})
	if err != nil {
		// Survivable: the pointer poll below covers the same ground.
		e.cfg.Logger.Warn("pointer subscription unavailable, relying on polling", slog.Any("error", err))
	} else {
		defer unsub()
	}

	// The poll exists even though a subscription is (usually) live:
	// push delivery over flaky network stacks stops silently, and
	// the null/reset case in particular must not be missed.
	ticker := time.NewTicker(e.cfg.PointerPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.pollPointer(ctx)
		}
	}
}

func (e *Engine) pollPointer(ctx context.Context) {
	ptr, err := e.cfg.Store.FetchActivePointer(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.cfg.Logger.Warn("failed to fetch active pointer", slog.Any("error", err))
		}
		return
	}
	e.evaluatePointer(ctx, ptr)
}

// evaluatePointer is the pointer state machine. Inputs: the fetched
// or pushed pointer value and the local identity. A fetch error never
// reaches here: "could not read the pointer" and "the pointer is
// explicitly clear" demand different reactions.
func (e *Engine) evaluatePointer(ctx context.Context, ptr models.ActivePointer) {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	if e.cfg.State.Resetting() {
		return
	}

	local := e.cfg.State.TournamentID()

	if !ptr.Active() {
		e.stopSession()
		if local == "" {
			return
		}
		// The tournament was torn down remotely. This device must
		// not keep believing in it: full local nuclear reset.
		e.cfg.Logger.Info("active pointer cleared remotely, resetting local state",
			slog.String("tournament_id", local))
		e.cfg.State.NuclearReset()
		if e.cfg.OnReset != nil {
			e.cfg.OnReset()
		}
		e.notifyChange()
		return
	}

	id := ptr.ID()
	// A present identity with a missing pair mapping means a prior
	// hydration never finished; treat it the same as a new identity.
	if id != local || e.cfg.State.PairMap().Len() == 0 {
		e.hydrate(ctx, id)
	} else {
		e.catchUpMatches(ctx, id)
	}
	e.ensureSession(ctx, id)
}

// hydrate pulls the whole tournament (config, roster, history) and
// atomically replaces the local state with it.
func (e *Engine) hydrate(ctx context.Context, id string) {
	if e.cfg.State.Resetting() {
		// Racing a reset; leave an empty-but-hydrated state rather
		// than resurrect anything.
		e.cfg.State.SoftReset()
		return
	}

	t, err := e.cfg.Store.GetTournament(ctx, id)
	if err != nil {
		e.cfg.Logger.Warn("hydration: failed to fetch tournament",
			slog.String("tournament_id", id), slog.Any("error", err))
		return
	}
	pairRows, err := e.cfg.Store.ListPairs(ctx, id)
	if err != nil {
		e.cfg.Logger.Warn("hydration: failed to fetch pairs",
			slog.String("tournament_id", id), slog.Any("error", err))
		return
	}
	matchRows, err := e.cfg.Store.ListMatches(ctx, id)
	if err != nil {
		e.cfg.Logger.Warn("hydration: failed to fetch matches",
			slog.String("tournament_id", id), slog.Any("error", err))
		return
	}

	pairs := make([]models.Pair, 0, len(pairRows))
	for _, p := range pairRows {
		pairs = append(pairs, *p)
	}
	pm, err := pairing.NewPairMap(pairs)
	if err != nil {
		e.cfg.Logger.Error("hydration: ambiguous pair roster",
			slog.String("tournament_id", id), slog.Any("error", err))
		return
	}

	matches := e.translateMatches(pm, matchRows)

	if e.cfg.State.Resetting() {
		e.cfg.State.SoftReset()
		return
	}
	e.cfg.State.Initialize(id, t.HostName, pairs, matches, pm)
	e.cfg.Logger.Info("hydrated tournament",
		slog.String("tournament_id", id),
		slog.Int("pairs", len(pairs)),
		slog.Int("matches", len(matches)))
	e.notifyChange()
}

// catchUpMatches re-fetches and merges the full history even when
// the identity already matches: a backgrounded device misses pushes,
// and a redundant fetch is cheaper than a lost match. A tick from a
// session that outlived a reset or identity switch is inert; the
// merge re-checks identity under the state lock.
func (e *Engine) catchUpMatches(ctx context.Context, id string) {
	pm := e.cfg.State.PairMap()
	if e.cfg.State.TournamentID() != id || pm.Len() == 0 {
		return
	}
	rows, err := e.cfg.Store.ListMatches(ctx, id)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.cfg.Logger.Warn("match catch-up fetch failed",
				slog.String("tournament_id", id), slog.Any("error", err))
		}
		return
	}
	if added := e.cfg.State.MergeRemoteMatches(id, e.translateMatches(pm, rows)); added > 0 {
		e.cfg.Logger.Info("merged matches from poll", slog.Int("added", added))
		e.notifyChange()
	}
}

// translateMatches resolves opaque pair ids to pair numbers. A record
// whose pairs cannot be resolved is skipped, not half-applied.
func (e *Engine) translateMatches(pm *pairing.PairMap, rows []*models.MatchRecord) []models.MatchRecord {
	out := make([]models.MatchRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := translateMatch(pm, *row)
		if err != nil {
			e.cfg.Logger.Warn("skipping match with unmapped pair",
				slog.String("match_id", row.ID), slog.Any("error", err))
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (e *Engine) notifyChange() {
	if e.cfg.OnChange != nil {
		e.cfg.OnChange()
	}
}

// errUnmappedPair reports a remote record referencing a pair id that
// the identity mapping does not know.
var errUnmappedPair = errors.New("pair id has no local mapping")

func translateMatch(pm *pairing.PairMap, rec models.MatchRecord) (models.MatchRecord, error) {
	a, okA := pm.NumberFor(rec.PairAID)
	b, okB := pm.NumberFor(rec.PairBID)
	if !okA || !okB {
		return models.MatchRecord{}, errUnmappedPair
	}
	rec.PairA, rec.PairB = a, b
	return rec, nil
}

// gameplaySession is Loop B: everything filtered by one tournament
// identity. It is torn down and rebuilt whenever the identity
// changes, so a stale subscription can never apply events against
// the wrong tournament.
type gameplaySession struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

func (e *Engine) ensureSession(parent context.Context, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil && e.session.id == id {
		return
	}
	e.stopSessionLocked()

	ctx, cancel := context.WithCancel(parent)
	s := &gameplaySession{id: id, cancel: cancel, done: make(chan struct{})}
	e.session = s

	go func() {
		defer close(s.done)
		e.runSession(ctx, id)
	}()
}

func (e *Engine) stopSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopSessionLocked()
}

func (e *Engine) stopSessionLocked() {
	if e.session == nil {
		return
	}
	e.session.cancel()
	<-e.session.done
	e.session = nil
}
