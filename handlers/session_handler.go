package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pcanellas/jornada-sync/models"
	"github.com/pcanellas/jornada-sync/services"
	"github.com/pcanellas/jornada-sync/state"
)

// SessionHandler exposes the table UI's data contracts over HTTP.
// Reads come straight from the local tournament state; writes go
// through the session service.
type SessionHandler struct {
	service services.SessionService
	state   *state.TournamentState
}

func NewSessionHandler(service services.SessionService, st *state.TournamentState) *SessionHandler {
	return &SessionHandler{service: service, state: st}
}

// stateResponse is the full view the UI renders from, live entries
// flattened to a list.
type stateResponse struct {
	TournamentID  string               `json:"tournament_id"`
	HostName      string               `json:"host_name"`
	SetupComplete bool                 `json:"setup_complete"`
	Hydrated      bool                 `json:"hydrated"`
	Resetting     bool                 `json:"resetting"`
	Pairs         map[int]models.Pair  `json:"pairs"`
	Matches       []models.MatchRecord `json:"matches"`
	Live          []models.LiveScore   `json:"live"`
}

func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	live := h.state.LiveScores()
	list := make([]models.LiveScore, 0, len(live))
	for _, ls := range live {
		list = append(list, ls)
	}

	writeJSON(w, http.StatusOK, stateResponse{
		TournamentID:  h.state.TournamentID(),
		HostName:      h.state.HostName(),
		SetupComplete: h.state.SetupComplete(),
		Hydrated:      h.state.Hydrated(),
		Resetting:     h.state.Resetting(),
		Pairs:         h.state.Pairs(),
		Matches:       h.state.Matches(),
		Live:          list,
	})
}

func (h *SessionHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonResponse{"standings": h.service.Standings()})
}

func (h *SessionHandler) GetOpponents(w http.ResponseWriter, r *http.Request) {
	pair, err := strconv.Atoi(chi.URLParam(r, "pairNumber"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": "invalid pair number"})
		return
	}
	opponents, err := h.service.Opponents(pair)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"opponents": opponents})
}

func (h *SessionHandler) PostDraw(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.Draw()
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tables": tables})
}

type setupRequest struct {
	HostName string               `json:"host_name"`
	Pairs    []services.PairEntry `json:"pairs"`
}

func (h *SessionHandler) PostSetup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": err.Error()})
		return
	}
	id, err := h.service.Setup(r.Context(), req.HostName, req.Pairs)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"tournament_id": id})
}

func (h *SessionHandler) PostReset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"status": "reset"})
}

type startMatchRequest struct {
	PairA int `json:"pair_a"`
	PairB int `json:"pair_b"`
}

func (h *SessionHandler) PostStartMatch(w http.ResponseWriter, r *http.Request) {
	var req startMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": err.Error()})
		return
	}
	if err := h.service.StartMatch(r.Context(), req.PairA, req.PairB); err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"status": "seated"})
}

func (h *SessionHandler) PostLiveScore(w http.ResponseWriter, r *http.Request) {
	var req services.LiveUpdate
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": err.Error()})
		return
	}
	if err := h.service.ReportHand(r.Context(), req); err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"status": "recorded"})
}

func (h *SessionHandler) PostFinishMatch(w http.ResponseWriter, r *http.Request) {
	var req services.MatchResult
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{"error": err.Error()})
		return
	}
	rec, err := h.service.FinishMatch(r.Context(), req)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"match": rec})
}

func (h *SessionHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonResponse{"status": "ok", "hydrated": h.state.Hydrated()})
}
