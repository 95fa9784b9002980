package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dialtone/callcenter/backend/internal/types"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the engine's error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrUnknownDepartment):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrCallNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrCallAlreadyClosed):
		status = http.StatusConflict
	case errors.Is(err, types.ErrConversationTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, types.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
