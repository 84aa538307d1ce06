// Package services is the facade UI handlers call into. Gameplay
// writes follow the optimistic pattern: mutate local state
// synchronously, mirror to the remote store in the background.
// Setup and reset are the two exceptions whose remote legs are
// awaited, because their failure must be user-visible.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pcanellas/jornada-sync/models"
	"github.com/pcanellas/jornada-sync/pairing"
	"github.com/pcanellas/jornada-sync/scoring"
	"github.com/pcanellas/jornada-sync/state"
	"github.com/pcanellas/jornada-sync/store"
)

const mirrorTimeout = 10 * time.Second

// Notifier pushes messages to the UI clients attached to this agent.
type Notifier interface {
	Broadcast(msgType string, payload any)
	BroadcastReload(token string)
}

type PairEntry struct {
	PairNumber  int    `json:"pair_number"`
	Player1Name string `json:"player1_name"`
	Player2Name string `json:"player2_name"`
}

type LiveUpdate struct {
	PairA      int `json:"pair_a"`
	PairB      int `json:"pair_b"`
	ScoreA     int `json:"score_a"`
	ScoreB     int `json:"score_b"`
	HandNumber int `json:"hand_number"`
}

type MatchResult struct {
	PairA  int `json:"pair_a"`
	PairB  int `json:"pair_b"`
	ScoreA int `json:"score_a"`
	ScoreB int `json:"score_b"`
	HandsA int `json:"hands_a"`
	HandsB int `json:"hands_b"`
}

type SessionService interface {
	Setup(ctx context.Context, hostName string, entries []PairEntry) (string, error)
	StartMatch(ctx context.Context, pairA, pairB int) error
	ReportHand(ctx context.Context, in LiveUpdate) error
	FinishMatch(ctx context.Context, in MatchResult) (*models.MatchRecord, error)
	Reset(ctx context.Context) error

	Standings() []scoring.StandingsRow
	Opponents(pair int) ([]int, error)
	Draw() ([]pairing.Table, error)
}

type sessionService struct {
	store  store.RemoteStore
	state  *state.TournamentState
	hub    Notifier
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewSessionService(st store.RemoteStore, ts *state.TournamentState, hub Notifier, logger *slog.Logger) SessionService {
	return &sessionService{
		store:  st,
		state:  ts,
		hub:    hub,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Setup creates the tournament remotely, registers the roster,
// points every device at the new identity and initializes local
// state. Each remote leg is awaited: setup must not optimistically
// succeed on a device that could not confirm it.
func (s *sessionService) Setup(ctx context.Context, hostName string, entries []PairEntry) (string, error) {
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return "", fmt.Errorf("%w: host name is required", ErrValidationFailed)
	}
	if len(entries) < 2 {
		return "", fmt.Errorf("%w: at least two pairs are required", ErrValidationFailed)
	}
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.PairNumber < 1 {
			return "", fmt.Errorf("%w: pair numbers start at 1", ErrValidationFailed)
		}
		if seen[e.PairNumber] {
			return "", fmt.Errorf("%w: duplicate pair number %d", ErrValidationFailed, e.PairNumber)
		}
		seen[e.PairNumber] = true
		if strings.TrimSpace(e.Player1Name) == "" || strings.TrimSpace(e.Player2Name) == "" {
			return "", fmt.Errorf("%w: pair %d needs two player names", ErrValidationFailed, e.PairNumber)
		}
	}
	if s.state.SetupComplete() {
		return "", ErrTournamentActive
	}

	t := &models.Tournament{
		ID:       uuid.NewString(),
		HostName: hostName,
		Status:   models.TournamentStatusActive,
	}
	if err := s.store.CreateTournament(ctx, t); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	rows := make([]*models.Pair, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &models.Pair{
			TournamentID: t.ID,
			PairNumber:   e.PairNumber,
			Player1Name:  strings.TrimSpace(e.Player1Name),
			Player2Name:  strings.TrimSpace(e.Player2Name),
		})
	}
	if err := s.store.CreatePairs(ctx, rows); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	if err := s.store.SetActivePointer(ctx, t.ID); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	pairs := make([]models.Pair, 0, len(rows))
	for _, p := range rows {
		pairs = append(pairs, *p)
	}
	pm, err := pairing.NewPairMap(pairs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	s.state.Initialize(t.ID, hostName, pairs, nil, pm)
	s.logger.Info("tournament created",
		slog.String("tournament_id", t.ID), slog.Int("pairs", len(pairs)))
	s.broadcastState()
	return t.ID, nil
}

// StartMatch reserves a table for two pairs: a hand-zero live entry,
// locally at once and mirrored in the background.
func (s *sessionService) StartMatch(ctx context.Context, pairA, pairB int) error {
	ls, err := s.validateSeating(pairA, pairB)
	if err != nil {
		return err
	}

	s.state.UpsertLiveScore(*ls)
	s.mirrorLive("start", *ls)
	s.broadcastState()
	return nil
}

func (s *sessionService) validateSeating(pairA, pairB int) (*models.LiveScore, error) {
	if !s.state.SetupComplete() {
		return nil, ErrSetupIncomplete
	}
	if pairA == pairB {
		return nil, ErrSamePair
	}
	pairs := s.state.Pairs()
	if _, ok := pairs[pairA]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrPairNotFound, pairA)
	}
	if _, ok := pairs[pairB]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrPairNotFound, pairB)
	}

	key := models.NewLiveKey(pairA, pairB)
	for _, m := range s.state.Matches() {
		if models.NewLiveKey(m.PairA, m.PairB) == key {
			return nil, ErrAlreadyPlayed
		}
	}
	for k := range s.state.LiveScores() {
		if k.PairA == pairA || k.PairB == pairA {
			return nil, fmt.Errorf("%w: %d", ErrTableBusy, pairA)
		}
		if k.PairA == pairB || k.PairB == pairB {
			return nil, fmt.Errorf("%w: %d", ErrTableBusy, pairB)
		}
	}

	return &models.LiveScore{
		TournamentID: s.state.TournamentID(),
		PairA:        key.PairA,
		PairB:        key.PairB,
		UpdatedAt:    time.Now(),
	}, nil
}

// ReportHand overwrites the running tally after a scored hand.
func (s *sessionService) ReportHand(ctx context.Context, in LiveUpdate) error {
	if !s.state.SetupComplete() {
		return ErrSetupIncomplete
	}
	if in.HandNumber < 1 {
		return fmt.Errorf("%w: hand number must be at least 1", ErrValidationFailed)
	}
	if in.ScoreA < 0 || in.ScoreB < 0 {
		return fmt.Errorf("%w: scores cannot be negative", ErrValidationFailed)
	}
	key := models.NewLiveKey(in.PairA, in.PairB)
	if _, seated := s.state.LiveScores()[key]; !seated {
		return ErrNotSeated
	}

	ls := models.LiveScore{
		TournamentID: s.state.TournamentID(),
		PairA:        in.PairA,
		PairB:        in.PairB,
		ScoreA:       in.ScoreA,
		ScoreB:       in.ScoreB,
		HandNumber:   in.HandNumber,
		UpdatedAt:    time.Now(),
	}.Normalized()

	s.state.UpsertLiveScore(ls)
	s.mirrorLive("hand", ls)
	s.broadcastState()
	return nil
}

// FinishMatch commits the immutable match record and releases the
// table. The pair ids must resolve through the identity mapping; a
// record with a broken pair reference is worse than a missing one,
// so an unresolvable pair aborts the write outright.
func (s *sessionService) FinishMatch(ctx context.Context, in MatchResult) (*models.MatchRecord, error) {
	if !s.state.SetupComplete() {
		return nil, ErrSetupIncomplete
	}
	if in.PairA == in.PairB {
		return nil, ErrSamePair
	}
	if in.ScoreA < 0 || in.ScoreB < 0 || in.ScoreA == in.ScoreB {
		return nil, fmt.Errorf("%w: final scores must differ and be non-negative", ErrValidationFailed)
	}

	pairs := s.state.Pairs()
	pa, okA := pairs[in.PairA]
	pb, okB := pairs[in.PairB]
	if !okA || !okB {
		return nil, ErrPairNotFound
	}

	pm := s.state.PairMap()
	idA, okA := pm.IDFor(in.PairA)
	idB, okB := pm.IDFor(in.PairB)
	if !okA || !okB {
		return nil, ErrPairUnmapped
	}

	rec := models.MatchRecord{
		ID:           uuid.NewString(),
		TournamentID: s.state.TournamentID(),
		PairAID:      idA,
		PairBID:      idB,
		PairA:        in.PairA,
		PairB:        in.PairB,
		ScoreA:       in.ScoreA,
		ScoreB:       in.ScoreB,
		HandsA:       in.HandsA,
		HandsB:       in.HandsB,
		Termination:  scoring.Classify(in.ScoreA, in.ScoreB),
		PairANames:   pa.Names(),
		PairBNames:   pb.Names(),
		CreatedAt:    time.Now(),
	}

	s.state.RecordCompletedMatch(rec)
	s.state.RemoveLiveScore(in.PairA, in.PairB)

	tournamentID := rec.TournamentID
	key := models.NewLiveKey(in.PairA, in.PairB)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := s.store.DeleteLiveScore(ctx, tournamentID, key); err != nil {
			s.logger.Warn("failed to delete remote live score, poll will clean up",
				slog.Int("pair_a", key.PairA), slog.Int("pair_b", key.PairB), slog.Any("error", err))
		}
	}()

	s.broadcastState()
	return &rec, nil
}

// Reset initiates the multi-device teardown. The remote pointer
// clear is awaited first so other devices' pointer polls see the
// null and self-reset in parallel with this one; only then is local
// state destroyed. If the remote clear fails, this device still ends
// up clean and the cross-device inconsistency is logged for a
// manual retry.
func (s *sessionService) Reset(ctx context.Context) error {
	if err := s.store.ClearActivePointer(ctx); err != nil {
		s.logger.Error("remote pointer clear failed; other devices will keep the old tournament until reset is retried",
			slog.Any("error", err))
	}

	s.state.NuclearReset()

	if s.hub != nil {
		s.hub.BroadcastReload(uuid.NewString())
	}
	s.logger.Info("local reset complete")
	return nil
}

func (s *sessionService) Standings() []scoring.StandingsRow {
	return scoring.Standings(s.state.Pairs(), s.state.Matches())
}

func (s *sessionService) Opponents(pair int) ([]int, error) {
	if !s.state.SetupComplete() {
		return nil, ErrNoActiveTournament
	}
	pairs := s.state.Pairs()
	if _, ok := pairs[pair]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrPairNotFound, pair)
	}
	return pairing.Opponents(pair, pairs, s.state.Matches(), s.state.LiveScores()), nil
}

func (s *sessionService) Draw() ([]pairing.Table, error) {
	if !s.state.SetupComplete() {
		return nil, ErrNoActiveTournament
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return pairing.Draw(s.state.Pairs(), s.state.Matches(), s.state.LiveScores(), s.rng), nil
}

// mirrorLive pushes a live entry to the remote store without making
// the caller wait. At most one attempt; the next poll reconciles.
func (s *sessionService) mirrorLive(action string, ls models.LiveScore) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := s.store.UpsertLiveScore(ctx, &ls); err != nil {
			s.logger.Warn("live score mirror write failed",
				slog.String("action", action),
				slog.Int("pair_a", ls.PairA), slog.Int("pair_b", ls.PairB),
				slog.Any("error", err))
		}
	}()
}

func (s *sessionService) broadcastState() {
	if s.hub != nil {
		s.hub.Broadcast("state", nil)
	}
}
