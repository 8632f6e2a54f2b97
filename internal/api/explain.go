package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Tender/internal/procurement"
)

type ExplainHandler struct {
	svc *procurement.Service
}

func NewExplainHandler(svc *procurement.Service) *ExplainHandler {
	return &ExplainHandler{svc: svc}
}

// Explain returns one bid's breakdown from the latest evaluation.
// GET /api/v1/scoring/explain/{package_id}/{bid_id}
func (h *ExplainHandler) Explain(w http.ResponseWriter, r *http.Request) {
	pkgID, ok := uuidParam(w, r, "package_id")
	if !ok {
		return
	}
	bidID, ok := uuidParam(w, r, "bid_id")
	if !ok {
		return
	}

	ex, err := h.svc.Explain(r.Context(), pkgID, bidID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}
