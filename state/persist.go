package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pcanellas/jornada-sync/models"
)

// SnapshotStore owns the on-device persisted copy of the tournament
// state: the main snapshot file plus a hydration cache written after
// each successful remote hydration. Writes go through a barrier
// timestamp so that a save captured before a reset can never land
// after it: "reset wins" over any in-flight stale write.
type SnapshotStore struct {
	mu        sync.Mutex
	path      string
	cachePath string
	barrier   time.Time
	logger    *slog.Logger
}

func NewSnapshotStore(dir string, logger *slog.Logger) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}
	return &SnapshotStore{
		path:      filepath.Join(dir, "state.json"),
		cachePath: filepath.Join(dir, "hydration_cache.json"),
		logger:    logger,
	}, nil
}

// Load reads the persisted snapshot, falling back to the hydration
// cache. A missing, unparseable or wrong-version file is treated as
// "no persisted state" and never as an error.
func (s *SnapshotStore) Load() (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap, ok := s.read(s.path); ok {
		return snap, true
	}
	return s.read(s.cachePath)
}

func (s *SnapshotStore) read(path string) (models.Snapshot, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read snapshot", slog.String("path", path), slog.Any("error", err))
		}
		return models.Snapshot{}, false
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("corrupt snapshot, falling back to defaults",
			slog.String("path", path), slog.Any("error", err))
		return models.Snapshot{}, false
	}
	if snap.Version != models.SnapshotVersion {
		s.logger.Warn("snapshot version mismatch, falling back to defaults",
			slog.String("path", path), slog.Int("version", snap.Version))
		return models.Snapshot{}, false
	}
	return snap, true
}

// Save persists a snapshot captured at snap.SavedAt. Snapshots
// captured before the current barrier are dropped silently.
func (s *SnapshotStore) Save(snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !snap.SavedAt.After(s.barrier) {
		s.logger.Debug("dropping snapshot captured before reset barrier")
		return nil
	}
	return s.write(s.path, snap)
}

// SaveCache persists the hydration cache copy, same barrier rules.
func (s *SnapshotStore) SaveCache(snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !snap.SavedAt.After(s.barrier) {
		return nil
	}
	return s.write(s.cachePath, snap)
}

func (s *SnapshotStore) write(path string, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Invalidate raises the barrier: every snapshot captured at or before
// t will be refused from now on.
func (s *SnapshotStore) Invalidate(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.barrier) {
		s.barrier = t
	}
}

// WriteEmpty overwrites the snapshot with an explicit empty-but-valid
// one, bypassing the barrier. A reader racing the subsequent removal
// sees "reset" instead of a transiently absent key.
func (s *SnapshotStore) WriteEmpty() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.path, models.EmptySnapshot())
}

// Remove deletes the persisted snapshot. Absence is not an error.
func (s *SnapshotStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

// RemoveCache deletes the hydration cache. Absence is not an error.
func (s *SnapshotStore) RemoveCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove hydration cache: %w", err)
	}
	return nil
}
