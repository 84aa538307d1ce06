package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pcanellas/jornada-sync/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	js, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

func errorResponse(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), jsonResponse{"error": err.Error()})
}

// statusForError maps service sentinels onto HTTP statuses. Anything
// unmapped is a 500: sync failures never reach here, they are logged
// at the mirroring boundary instead.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrSamePair):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrPairNotFound),
		errors.Is(err, services.ErrNoActiveTournament):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyPlayed),
		errors.Is(err, services.ErrTableBusy),
		errors.Is(err, services.ErrNotSeated),
		errors.Is(err, services.ErrTournamentActive),
		errors.Is(err, services.ErrSetupIncomplete):
		return http.StatusConflict
	case errors.Is(err, services.ErrPairUnmapped):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrSetupFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
