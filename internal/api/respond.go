package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

type errorResponse struct {
	Error string               `json:"error"`
	Kind  evaluation.ErrorKind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps service errors onto HTTP statuses: engine validation
// failures are 422, lifecycle and version conflicts 409, unknown ids 404.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Kind: evaluation.KindOf(err)})
}

func statusFor(err error) int {
	switch evaluation.KindOf(err) {
	case evaluation.KindPackageState, evaluation.KindInvalidTransition, evaluation.KindAward:
		return http.StatusConflict
	case "":
	default:
		return http.StatusUnprocessableEntity
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrNotBidding),
		errors.Is(err, store.ErrPackageClosed),
		errors.Is(err, store.ErrNotAwarded),
		errors.Is(err, store.ErrNotEligible):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid request body")
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeBadRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func actorID(r *http.Request) string {
	return r.Header.Get(ActorHeader)
}
