// Package pairing maps opaque remote pair identifiers to the stable
// small pair numbers used everywhere else, and implements the
// round-robin bookkeeping (eligibility, random table draw) on top of
// the local state's read views.
package pairing

import (
	"errors"
	"fmt"

	"github.com/pcanellas/jornada-sync/models"
)

var (
	ErrDuplicatePairNumber = errors.New("duplicate pair number")
	ErrDuplicatePairID     = errors.New("duplicate pair id")
)

// PairMap is the bidirectional pair_number <-> remote id lookup.
// It is immutable after construction; a tournament's roster never
// changes until the tournament is reset.
type PairMap struct {
	byID     map[string]int
	byNumber map[int]string
}

// NewPairMap builds the mapping from roster rows, rejecting any
// ambiguity in either direction.
func NewPairMap(pairs []models.Pair) (*PairMap, error) {
	m := &PairMap{
		byID:     make(map[string]int, len(pairs)),
		byNumber: make(map[int]string, len(pairs)),
	}
	for _, p := range pairs {
		if _, ok := m.byNumber[p.PairNumber]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePairNumber, p.PairNumber)
		}
		if _, ok := m.byID[p.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePairID, p.ID)
		}
		m.byNumber[p.PairNumber] = p.ID
		m.byID[p.ID] = p.PairNumber
	}
	return m, nil
}

// RestorePairMap rebuilds a mapping from a persisted id->number map.
func RestorePairMap(byID map[string]int) *PairMap {
	m := &PairMap{
		byID:     make(map[string]int, len(byID)),
		byNumber: make(map[int]string, len(byID)),
	}
	for id, n := range byID {
		m.byID[id] = n
		m.byNumber[n] = id
	}
	return m
}

// NumberFor resolves an opaque remote id to its pair number. A nil
// map resolves nothing; a reset leaves no mapping behind.
func (m *PairMap) NumberFor(id string) (int, bool) {
	if m == nil {
		return 0, false
	}
	n, ok := m.byID[id]
	return n, ok
}

// IDFor resolves a pair number to its opaque remote id.
func (m *PairMap) IDFor(number int) (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.byNumber[number]
	return id, ok
}

func (m *PairMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byID)
}

// ByID returns a copy of the id->number map for persistence.
func (m *PairMap) ByID() map[string]int {
	out := make(map[string]int, len(m.byID))
	for id, n := range m.byID {
		out[id] = n
	}
	return out
}
