package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/luxecraft/atelier/internal/catalog"
	"github.com/luxecraft/atelier/internal/models"
	"github.com/luxecraft/atelier/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeError maps domain errors onto HTTP status codes. Conflicts between the
// requested operation and the order's current state are 409; bad input is
// 400; everything unexpected is a logged 500 with a generic body.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrorMessage(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, models.ErrProductUnavailable),
		errors.Is(err, models.ErrRefundExceedsTotal),
		errors.Is(err, catalog.ErrUnknownPromo):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrOrderNotFound):
		writeErrorMessage(w, http.StatusNotFound, "order not found")
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrTerminalState),
		errors.Is(err, models.ErrAlreadyVerified),
		errors.Is(err, models.ErrConcurrentModification):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	default:
		h.loggerFromContext(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
