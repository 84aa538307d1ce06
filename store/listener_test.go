package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Trigger payloads as notify_jornada_change emits them.

func TestWireChange_DecodePointerUpdate(t *testing.T) {
	payload := `{"op":"UPDATE","row":{"key":"active","tournament_id":"t-123"}}`

	var ch wireChange
	require.NoError(t, json.Unmarshal([]byte(payload), &ch))
	assert.Equal(t, OpUpdate, ch.Op)

	var row pointerRow
	require.NoError(t, json.Unmarshal(ch.Row, &row))
	assert.Equal(t, "active", row.Key)
	require.NotNil(t, row.TournamentID)
	assert.Equal(t, "t-123", *row.TournamentID)
}

func TestWireChange_DecodePointerCleared(t *testing.T) {
	payload := `{"op":"UPDATE","row":{"key":"active","tournament_id":null}}`

	var ch wireChange
	require.NoError(t, json.Unmarshal([]byte(payload), &ch))

	var row pointerRow
	require.NoError(t, json.Unmarshal(ch.Row, &row))
	assert.Nil(t, row.TournamentID, "explicit null survives decoding")
}

func TestWireChange_DecodeMatchInsert(t *testing.T) {
	payload := `{"op":"INSERT","row":{
		"id":"m-1","tournament_id":"t-1",
		"pair_a_id":"p-1","pair_b_id":"p-2",
		"score_a":100,"score_b":25,"hands_a":7,"hands_b":3,
		"termination_type":"zapatero",
		"pair_a_names":["Ana","Luis"],"pair_b_names":["Marta","Pep"],
		"created_at":"2026-03-14T18:30:00Z"}}`

	var ch wireChange
	require.NoError(t, json.Unmarshal([]byte(payload), &ch))

	var row matchRow
	require.NoError(t, json.Unmarshal(ch.Row, &row))
	rec := row.toModel()

	assert.Equal(t, "m-1", rec.ID)
	assert.Equal(t, "p-1", rec.PairAID)
	assert.Equal(t, 100, rec.ScoreA)
	assert.Equal(t, []string{"Ana", "Luis"}, rec.PairANames)
	assert.Equal(t, "zapatero", string(rec.Termination))
	assert.Zero(t, rec.PairA, "pair numbers only exist after identity translation")
}

func TestWireChange_DecodeLiveDeleteWithPreImage(t *testing.T) {
	payload := `{"op":"DELETE","old":{
		"tournament_id":"t-1","pair_a":1,"pair_b":4,
		"score_a":55,"score_b":70,"hand_number":6,
		"updated_at":"2026-03-14T19:00:00Z"}}`

	var ch wireChange
	require.NoError(t, json.Unmarshal([]byte(payload), &ch))
	assert.Equal(t, OpDelete, ch.Op)
	assert.Empty(t, ch.Row)
	require.NotEmpty(t, ch.Old)

	var old liveRow
	require.NoError(t, json.Unmarshal(ch.Old, &old))
	ls := old.toModel()
	assert.Equal(t, 1, ls.PairA)
	assert.Equal(t, 4, ls.PairB)
	assert.Equal(t, 6, ls.HandNumber)
}

// TestWireChange_DecodeTruncatedDelete: the trigger drops the
// pre-image when the row does not fit the notification size limit.
func TestWireChange_DecodeTruncatedDelete(t *testing.T) {
	payload := `{"op":"DELETE"}`

	var ch wireChange
	require.NoError(t, json.Unmarshal([]byte(payload), &ch))
	assert.Equal(t, OpDelete, ch.Op)
	assert.Empty(t, ch.Old)
}
