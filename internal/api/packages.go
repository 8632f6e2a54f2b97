package api

import (
	"net/http"
	"strconv"

	"github.com/MikeSquared-Agency/Tender/internal/procurement"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

type PackagesHandler struct {
	svc *procurement.Service
}

func NewPackagesHandler(svc *procurement.Service) *PackagesHandler {
	return &PackagesHandler{svc: svc}
}

func (h *PackagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req procurement.CreatePackageInput
	if !decodeBody(w, r, &req) {
		return
	}

	pkg, err := h.svc.CreatePackage(r.Context(), actorID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pkg)
}

func (h *PackagesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PackageFilter{TradeCategory: q.Get("trade_category")}
	if s := q.Get("status"); s != "" {
		status := store.PackageStatus(s)
		filter.Status = &status
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}

	pkgs, err := h.svc.ListPackages(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if pkgs == nil {
		pkgs = []*store.Package{}
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (h *PackagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	pkg, err := h.svc.GetPackage(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

type TransitionRequest struct {
	To      store.PackageStatus `json:"to"`
	Version int                 `json:"version"`
}

func (h *PackagesHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.To == "" {
		writeBadRequest(w, "to is required")
		return
	}

	pkg, err := h.svc.Transition(r.Context(), actorID(r), id, req.To, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (h *PackagesHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	events, err := h.svc.Events(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []*store.PackageEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
