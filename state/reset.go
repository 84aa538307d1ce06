package state

import (
	"log/slog"
	"time"
)

// The reset family is a strict escalation: each level performs the
// previous one and then goes further. Remote-side clearing is the
// caller's job (services.Reset awaits the pointer clear before any
// of these run); this file only destroys device-local state.

// SoftReset clears in-memory state only, leaving it hydrated so the
// UI shows an empty lobby instead of a loading spinner. Hydration
// calls this when it detects it is racing a reset.
func (s *TournamentState) SoftReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// HardReset clears memory, then removes the persisted copy after a
// short delay that lets any in-flight persistence write hit the
// raised barrier instead of the file.
func (s *TournamentState) HardReset() {
	s.beginReset()
	time.Sleep(s.cfg.HardResetDelay)
	if s.cfg.Snapshots != nil {
		if err := s.cfg.Snapshots.Remove(); err != nil {
			s.cfg.Logger.Warn("hard reset: failed to remove snapshot", slog.Any("error", err))
		}
	}
	s.endReset()
}

// NuclearReset performs a hard reset, but overwrites the persisted
// copy with an explicit empty snapshot before deleting it (a reader
// racing the deletion must see "reset", not "never initialized") and
// clears the hydration cache as well. Forcing the UI to reload with
// a cache-busting token is the caller's side of the protocol.
func (s *TournamentState) NuclearReset() {
	s.beginReset()
	time.Sleep(s.cfg.HardResetDelay)
	if s.cfg.Snapshots != nil {
		if err := s.cfg.Snapshots.WriteEmpty(); err != nil {
			s.cfg.Logger.Warn("nuclear reset: failed to write empty snapshot", slog.Any("error", err))
		}
		if err := s.cfg.Snapshots.Remove(); err != nil {
			s.cfg.Logger.Warn("nuclear reset: failed to remove snapshot", slog.Any("error", err))
		}
		if err := s.cfg.Snapshots.RemoveCache(); err != nil {
			s.cfg.Logger.Warn("nuclear reset: failed to remove hydration cache", slog.Any("error", err))
		}
	}
	s.endReset()
}

// beginReset raises the persistence barrier and wipes memory while
// holding the resetting flag, which silences every inbound merge
// path in the reconciliation engine.
func (s *TournamentState) beginReset() {
	s.mu.Lock()
	s.resetting = true
	s.mu.Unlock()
	if s.cfg.Snapshots != nil {
		s.cfg.Snapshots.Invalidate(time.Now())
	}
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
}

func (s *TournamentState) endReset() {
	s.mu.Lock()
	s.resetting = false
	s.lastReset = time.Now()
	s.mu.Unlock()
}
