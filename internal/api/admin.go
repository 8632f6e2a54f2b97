package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Tender/internal/procurement"
)

type AdminHandler struct {
	svc *procurement.Service
}

func NewAdminHandler(svc *procurement.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
