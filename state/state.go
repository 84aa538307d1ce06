// Package state owns the device's materialized view of the
// tournament: identity, roster, match history, live scores and the
// control flags. It is the only shared-mutable object in the process
// and is mutated exclusively through the named actions below, which
// are the enforcement point for every invariant (dedup by match id,
// canonical live keys, setup-complete derivation).
package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pcanellas/jornada-sync/models"
	"github.com/pcanellas/jornada-sync/pairing"
)

const (
	defaultLiveStaleAfter = 2 * time.Hour
	defaultMirrorTimeout  = 10 * time.Second
	defaultHardResetDelay = 200 * time.Millisecond
)

// Mirror is the write-side slice of the remote store used for the
// fire-and-forget mirroring of locally recorded matches.
type Mirror interface {
	InsertMatch(ctx context.Context, m *models.MatchRecord) error
}

type Config struct {
	Snapshots *SnapshotStore
	Mirror    Mirror
	Logger    *slog.Logger

	// LiveStaleAfter is the freshness threshold past which a live
	// entry is treated as absent (crashed-device ghost).
	LiveStaleAfter time.Duration
	MirrorTimeout  time.Duration
	// HardResetDelay separates clearing memory from clearing the
	// persisted copy, giving in-flight persistence writes time to
	// land or fail before the file goes away.
	HardResetDelay time.Duration
}

type TournamentState struct {
	mu  sync.RWMutex
	cfg Config

	tournamentID string
	hostName     string
	pairs        map[int]models.Pair
	pairMap      *pairing.PairMap
	matches      []models.MatchRecord
	matchIDs     map[string]struct{}
	live         map[models.LiveKey]models.LiveScore

	hydrated  bool
	resetting bool
	lastReset time.Time
}

func New(cfg Config) *TournamentState {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LiveStaleAfter == 0 {
		cfg.LiveStaleAfter = defaultLiveStaleAfter
	}
	if cfg.MirrorTimeout == 0 {
		cfg.MirrorTimeout = defaultMirrorTimeout
	}
	if cfg.HardResetDelay == 0 {
		cfg.HardResetDelay = defaultHardResetDelay
	}
	s := &TournamentState{cfg: cfg}
	s.clearLocked()
	s.hydrated = false
	return s
}

// Restore loads the persisted snapshot, if any. It always leaves the
// state hydrated: "loading local state" has finished either way.
func (s *TournamentState) Restore() {
	var snap models.Snapshot
	loaded := false
	if s.cfg.Snapshots != nil {
		snap, loaded = s.cfg.Snapshots.Load()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if loaded {
		s.tournamentID = snap.TournamentID
		s.hostName = snap.HostName
		s.pairs = make(map[int]models.Pair, len(snap.Pairs))
		for n, p := range snap.Pairs {
			s.pairs[n] = p
		}
		s.pairMap = pairing.RestorePairMap(snap.PairIDs)
		s.matches = nil
		s.matchIDs = make(map[string]struct{}, len(snap.Matches))
		for _, m := range snap.Matches {
			if _, dup := s.matchIDs[m.ID]; dup {
				continue
			}
			s.matchIDs[m.ID] = struct{}{}
			s.matches = append(s.matches, m)
		}
	}
	s.hydrated = true
}

// Initialize atomically replaces the whole state. Used both for a
// fresh tournament created on this device and for hydrating a
// joining device from the remote store.
func (s *TournamentState) Initialize(tournamentID, hostName string, pairs []models.Pair, matches []models.MatchRecord, pm *pairing.PairMap) {
	s.mu.Lock()

	s.tournamentID = tournamentID
	s.hostName = hostName
	s.pairs = make(map[int]models.Pair, len(pairs))
	for _, p := range pairs {
		s.pairs[p.PairNumber] = p
	}
	s.pairMap = pm
	s.matches = nil
	s.matchIDs = make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, dup := s.matchIDs[m.ID]; dup {
			continue
		}
		s.matchIDs[m.ID] = struct{}{}
		s.matches = append(s.matches, m)
	}
	s.live = make(map[models.LiveKey]models.LiveScore)
	s.hydrated = true

	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	s.persistCache(snap)
}

// RecordCompletedMatch appends a locally scored match, deduplicating
// by id, and mirrors it to the remote store in the background. The
// optimistic local append never waits on the mirror; a mirror
// failure is logged and not retried, the next poll re-merges
// whatever did land.
func (s *TournamentState) RecordCompletedMatch(rec models.MatchRecord) bool {
	s.mu.Lock()
	if s.resetting {
		s.mu.Unlock()
		return false
	}
	if _, dup := s.matchIDs[rec.ID]; dup {
		s.mu.Unlock()
		return false
	}
	s.matchIDs[rec.ID] = struct{}{}
	s.matches = append(s.matches, rec)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)

	if s.cfg.Mirror != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.MirrorTimeout)
			defer cancel()
			if err := s.cfg.Mirror.InsertMatch(ctx, &rec); err != nil {
				s.cfg.Logger.Error("match mirror write failed, history gap until re-entered",
					slog.String("match_id", rec.ID), slog.Any("error", err))
			}
		}()
	}
	return true
}

// MergeRemoteMatch appends a record that arrived from the remote
// store, id-deduplicated and without mirroring back. Safe to call
// repeatedly with the same record.
func (s *TournamentState) MergeRemoteMatch(tournamentID string, rec models.MatchRecord) bool {
	return s.MergeRemoteMatches(tournamentID, []models.MatchRecord{rec}) > 0
}

// MergeRemoteMatches merges a bulk poll result. Overlapping sets in
// any order converge on the union of distinct ids. The tournament id
// is checked under the lock: a gameplay session that outlived a reset
// or an identity switch must not write its old tournament's history
// into the current state.
func (s *TournamentState) MergeRemoteMatches(tournamentID string, recs []models.MatchRecord) int {
	s.mu.Lock()
	if s.resetting || s.tournamentID != tournamentID {
		s.mu.Unlock()
		return 0
	}
	added := 0
	for _, rec := range recs {
		if _, dup := s.matchIDs[rec.ID]; dup {
			continue
		}
		s.matchIDs[rec.ID] = struct{}{}
		s.matches = append(s.matches, rec)
		added++
	}
	var snap models.Snapshot
	if added > 0 {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if added > 0 {
		s.persist(snap)
	}
	return added
}

// SetLiveScores replaces the whole live map with the fetched
// snapshot. Full replacement, not merge: an entry the fetch omitted
// is gone, which is exactly how ghost tables self-heal without a
// delivered delete event. Stale entries are dropped on the way in,
// and a fetch for any identity other than the current one is dropped
// whole so a stale session's poll cannot repopulate a cleared map.
func (s *TournamentState) SetLiveScores(tournamentID string, list []models.LiveScore) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetting || s.tournamentID != tournamentID {
		return
	}
	s.live = make(map[models.LiveKey]models.LiveScore, len(list))
	for _, ls := range list {
		n := ls.Normalized()
		if n.StaleAt(now, s.cfg.LiveStaleAfter) {
			continue
		}
		s.live[n.Key()] = n
	}
}

// UpsertLiveScore layers one push event on top of the last snapshot.
// Entries tagged with a foreign tournament id are dropped.
func (s *TournamentState) UpsertLiveScore(ls models.LiveScore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetting || ls.TournamentID != s.tournamentID {
		return
	}
	n := ls.Normalized()
	s.live[n.Key()] = n
}

// RemoveLiveScore drops the entry for the unordered pair (x, y).
func (s *TournamentState) RemoveLiveScore(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, models.NewLiveKey(x, y))
}

func (s *TournamentState) TournamentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tournamentID
}

func (s *TournamentState) HostName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostName
}

func (s *TournamentState) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

func (s *TournamentState) Resetting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resetting
}

func (s *TournamentState) LastReset() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReset
}

// SetupComplete holds exactly when an identity is set and the roster
// is non-empty. Derived, never stored.
func (s *TournamentState) SetupComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.setupCompleteLocked()
}

func (s *TournamentState) setupCompleteLocked() bool {
	return s.tournamentID != "" && len(s.pairs) > 0
}

// PairMap returns the identity mapping. The map is immutable after
// construction, so sharing the pointer is safe.
func (s *TournamentState) PairMap() *pairing.PairMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pairMap
}

func (s *TournamentState) Pairs() map[int]models.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]models.Pair, len(s.pairs))
	for n, p := range s.pairs {
		out[n] = p
	}
	return out
}

func (s *TournamentState) Matches() []models.MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MatchRecord, len(s.matches))
	copy(out, s.matches)
	return out
}

func (s *TournamentState) HasMatch(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.matchIDs[id]
	return ok
}

// LiveScores returns the live map with stale ghosts filtered out.
func (s *TournamentState) LiveScores() map[models.LiveKey]models.LiveScore {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.LiveKey]models.LiveScore, len(s.live))
	for k, v := range s.live {
		if v.StaleAt(now, s.cfg.LiveStaleAfter) {
			continue
		}
		out[k] = v
	}
	return out
}

// Snapshot captures the persistable view of the state.
func (s *TournamentState) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *TournamentState) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		Version:       models.SnapshotVersion,
		TournamentID:  s.tournamentID,
		HostName:      s.hostName,
		Pairs:         make(map[int]models.Pair, len(s.pairs)),
		PairIDs:       map[string]int{},
		Matches:       make([]models.MatchRecord, len(s.matches)),
		SetupComplete: s.setupCompleteLocked(),
		SavedAt:       time.Now(),
	}
	for n, p := range s.pairs {
		snap.Pairs[n] = p
	}
	if s.pairMap != nil {
		snap.PairIDs = s.pairMap.ByID()
	}
	copy(snap.Matches, s.matches)
	return snap
}

func (s *TournamentState) persist(snap models.Snapshot) {
	if s.cfg.Snapshots == nil {
		return
	}
	go func() {
		if err := s.cfg.Snapshots.Save(snap); err != nil {
			s.cfg.Logger.Warn("failed to persist state snapshot", slog.Any("error", err))
		}
	}()
}

func (s *TournamentState) persistCache(snap models.Snapshot) {
	if s.cfg.Snapshots == nil {
		return
	}
	go func() {
		if err := s.cfg.Snapshots.SaveCache(snap); err != nil {
			s.cfg.Logger.Warn("failed to persist hydration cache", slog.Any("error", err))
		}
	}()
}

func (s *TournamentState) clearLocked() {
	s.tournamentID = ""
	s.hostName = ""
	s.pairs = map[int]models.Pair{}
	s.pairMap = nil
	s.matches = nil
	s.matchIDs = map[string]struct{}{}
	s.live = map[models.LiveKey]models.LiveScore{}
	s.hydrated = true
}
