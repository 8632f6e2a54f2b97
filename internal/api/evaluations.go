package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Tender/internal/procurement"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

type EvaluationsHandler struct {
	svc *procurement.Service
}

func NewEvaluationsHandler(svc *procurement.Service) *EvaluationsHandler {
	return &EvaluationsHandler{svc: svc}
}

// Evaluate answers 201 when a new evaluation version was recorded and 200
// when the bids were unchanged since the latest one.
func (h *EvaluationsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	ev, err := h.svc.Evaluate(r.Context(), actorID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if ev.Unchanged {
		status = http.StatusOK
	}
	writeJSON(w, status, ev)
}

func (h *EvaluationsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	ev, err := h.svc.LatestEvaluation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *EvaluationsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	history, err := h.svc.EvaluationHistory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []*store.EvaluationRecord{}
	}
	writeJSON(w, http.StatusOK, history)
}
