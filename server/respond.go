package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	contractx "github.com/remitai/agentcore/agent/contract"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a 500 with a generic body; the cause goes to the log.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, contractx.ErrPaymentRequired),
		errors.Is(err, contractx.ErrPaymentRejected):
		writeJSON(w, http.StatusPaymentRequired, errorBody{Error: err.Error()})
	case errors.Is(err, contractx.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
