package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcanellas/jornada-sync/models"
)

func samplePairs() []models.Pair {
	return []models.Pair{
		{ID: "id-1", PairNumber: 1},
		{ID: "id-2", PairNumber: 2},
		{ID: "id-3", PairNumber: 3},
	}
}

// TestNewPairMap_Bidirectional resolves both directions without
// ambiguity.
func TestNewPairMap_Bidirectional(t *testing.T) {
	m, err := NewPairMap(samplePairs())
	require.NoError(t, err)

	n, ok := m.NumberFor("id-2")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	id, ok := m.IDFor(3)
	assert.True(t, ok)
	assert.Equal(t, "id-3", id)

	_, ok = m.NumberFor("missing")
	assert.False(t, ok)
	_, ok = m.IDFor(9)
	assert.False(t, ok)
	assert.Equal(t, 3, m.Len())
}

// TestNewPairMap_DuplicateNumber rejects an ambiguous roster.
func TestNewPairMap_DuplicateNumber(t *testing.T) {
	_, err := NewPairMap([]models.Pair{
		{ID: "id-1", PairNumber: 1},
		{ID: "id-2", PairNumber: 1},
	})

	assert.ErrorIs(t, err, ErrDuplicatePairNumber)
}

// TestNewPairMap_DuplicateID rejects a repeated opaque id.
func TestNewPairMap_DuplicateID(t *testing.T) {
	_, err := NewPairMap([]models.Pair{
		{ID: "id-1", PairNumber: 1},
		{ID: "id-1", PairNumber: 2},
	})

	assert.ErrorIs(t, err, ErrDuplicatePairID)
}

// TestRestorePairMap rebuilds from the persisted id->number map.
func TestRestorePairMap(t *testing.T) {
	orig, err := NewPairMap(samplePairs())
	require.NoError(t, err)

	restored := RestorePairMap(orig.ByID())

	assert.Equal(t, orig.Len(), restored.Len())
	id, ok := restored.IDFor(1)
	assert.True(t, ok)
	assert.Equal(t, "id-1", id)
}

// TestPairMap_NilLookups tolerates an absent mapping: a reset leaves
// no map behind, and late lookups must miss instead of crash.
func TestPairMap_NilLookups(t *testing.T) {
	var m *PairMap

	assert.Zero(t, m.Len())

	_, ok := m.NumberFor("id-1")
	assert.False(t, ok)

	_, ok = m.IDFor(1)
	assert.False(t, ok)
}
