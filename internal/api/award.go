package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Tender/internal/procurement"
)

type AwardHandler struct {
	svc *procurement.Service
}

func NewAwardHandler(svc *procurement.Service) *AwardHandler {
	return &AwardHandler{svc: svc}
}

type AwardRequest struct {
	Version            int      `json:"version"`
	AcceptedAlternates []string `json:"accepted_alternates,omitempty"`
}

func (h *AwardHandler) Award(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req AwardRequest
	if !decodeBody(w, r, &req) {
		return
	}

	out, err := h.svc.Award(r.Context(), actorID(r), id, req.Version, req.AcceptedAlternates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type ChangeOrderRequest struct {
	Description string          `json:"description"`
	CostDelta   decimal.Decimal `json:"cost_delta"`
}

func (h *AwardHandler) ChangeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req ChangeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	co, contract, err := h.svc.RecordChangeOrder(r.Context(), actorID(r), id, req.Description, req.CostDelta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"change_order": co,
		"contract":     contract,
	})
}

func (h *AwardHandler) Contract(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	contract, err := h.svc.Contract(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}
