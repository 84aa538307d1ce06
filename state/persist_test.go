package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcanellas/jornada-sync/models"
)

func sampleSnapshot(savedAt time.Time) models.Snapshot {
	return models.Snapshot{
		Version:      models.SnapshotVersion,
		TournamentID: "T1",
		HostName:     "Ana",
		Pairs: map[int]models.Pair{
			1: {ID: "id-1", TournamentID: "T1", PairNumber: 1, Player1Name: "Ana", Player2Name: "Luis"},
		},
		PairIDs:       map[string]int{"id-1": 1},
		Matches:       []models.MatchRecord{},
		SetupComplete: true,
		SavedAt:       savedAt,
	}
}

func TestSnapshotStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleSnapshot(time.Now())))

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "T1", got.TournamentID)
	assert.Equal(t, "Ana", got.HostName)
	assert.True(t, got.SetupComplete)
	assert.Equal(t, map[string]int{"id-1": 1}, got.PairIDs)
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	_, ok := store.Load()
	assert.False(t, ok)
}

// TestSnapshotStore_CorruptFallsBackToCache: an unparseable main file
// is treated as absent, the hydration cache still serves.
func TestSnapshotStore_CorruptFallsBackToCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir, discardLogger())
	require.NoError(t, err)

	require.NoError(t, store.SaveCache(sampleSnapshot(time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte("{not json"), 0o644))

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "T1", got.TournamentID)
}

func TestSnapshotStore_VersionMismatchIgnored(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	snap := sampleSnapshot(time.Now())
	snap.Version = models.SnapshotVersion + 1
	require.NoError(t, store.Save(snap))

	_, ok := store.Load()
	assert.False(t, ok)
}

// TestSnapshotStore_BarrierDropsStaleSave: a save captured before the
// reset barrier must never resurrect pre-reset state.
func TestSnapshotStore_BarrierDropsStaleSave(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	captured := time.Now()
	store.Invalidate(captured.Add(time.Second))

	require.NoError(t, store.Save(sampleSnapshot(captured)))
	require.NoError(t, store.SaveCache(sampleSnapshot(captured)))

	_, ok := store.Load()
	assert.False(t, ok)

	// A save captured after the barrier lands normally.
	require.NoError(t, store.Save(sampleSnapshot(captured.Add(2*time.Second))))
	_, ok = store.Load()
	assert.True(t, ok)
}

// TestSnapshotStore_WriteEmptyBypassesBarrier: the nuclear reset's
// empty-but-valid overwrite goes through even with the barrier raised.
func TestSnapshotStore_WriteEmptyBypassesBarrier(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleSnapshot(time.Now())))
	store.Invalidate(time.Now().Add(time.Hour))
	require.NoError(t, store.WriteEmpty())

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "", got.TournamentID)
	assert.False(t, got.SetupComplete)
}

func TestSnapshotStore_RemoveIsIdempotent(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleSnapshot(time.Now())))
	require.NoError(t, store.Remove())
	require.NoError(t, store.Remove())
	require.NoError(t, store.RemoveCache())

	_, ok := store.Load()
	assert.False(t, ok)
}
