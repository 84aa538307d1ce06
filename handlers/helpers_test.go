package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcanellas/jornada-sync/services"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrValidationFailed, http.StatusBadRequest},
		{fmt.Errorf("%w: duplicate pair number 2", services.ErrValidationFailed), http.StatusBadRequest},
		{services.ErrSamePair, http.StatusBadRequest},
		{services.ErrPairNotFound, http.StatusNotFound},
		{services.ErrNoActiveTournament, http.StatusNotFound},
		{services.ErrAlreadyPlayed, http.StatusConflict},
		{services.ErrTableBusy, http.StatusConflict},
		{services.ErrNotSeated, http.StatusConflict},
		{services.ErrTournamentActive, http.StatusConflict},
		{services.ErrSetupIncomplete, http.StatusConflict},
		{services.ErrPairUnmapped, http.StatusUnprocessableEntity},
		{services.ErrSetupFailed, http.StatusBadGateway},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusForError(c.err), c.err.Error())
	}
}

func TestReadJSON_Valid(t *testing.T) {
	var dst struct {
		PairA int `json:"pair_a"`
		PairB int `json:"pair_b"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pair_a":1,"pair_b":2}`))
	w := httptest.NewRecorder()

	require.NoError(t, readJSON(w, r, &dst))
	assert.Equal(t, 1, dst.PairA)
	assert.Equal(t, 2, dst.PairB)
}

func TestReadJSON_Rejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", "must not be empty"},
		{"malformed", `{"pair_a":`, "badly-formed"},
		{"wrong type", `{"pair_a":"one"}`, "incorrect JSON type"},
		{"unknown field", `{"bogus":1}`, "unknown key"},
		{"trailing value", `{"pair_a":1}{"pair_a":2}`, "single JSON value"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var dst struct {
				PairA int `json:"pair_a"`
			}
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(c.body))
			w := httptest.NewRecorder()

			err := readJSON(w, r, &dst)
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.want)
		})
	}
}
