package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Tender/internal/procurement"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

type BidsHandler struct {
	svc *procurement.Service
}

func NewBidsHandler(svc *procurement.Service) *BidsHandler {
	return &BidsHandler{svc: svc}
}

type BidRequest struct {
	VendorID     string                      `json:"vendor_id"`
	VendorName   string                      `json:"vendor_name"`
	Amount       decimal.Decimal             `json:"amount"`
	Compliance   store.ComplianceSignals     `json:"compliance"`
	RawScores    map[store.Criterion]float64 `json:"raw_scores"`
	VendorRating float64                     `json:"vendor_rating"`
	Alternates   []store.Alternate           `json:"alternates,omitempty"`
	Schedule     store.Schedule              `json:"schedule"`
}

// bid converts the request. Submission time is stamped by the service.
func (req BidRequest) bid() *store.Bid {
	return &store.Bid{
		VendorID:     req.VendorID,
		VendorName:   req.VendorName,
		Amount:       req.Amount,
		Compliance:   req.Compliance,
		RawScores:    req.RawScores,
		VendorRating: req.VendorRating,
		Alternates:   req.Alternates,
		Schedule:     req.Schedule,
	}
}

func (h *BidsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	pkgID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req BidRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bid, err := h.svc.SubmitBid(r.Context(), actorID(r), pkgID, req.bid())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}

func (h *BidsHandler) List(w http.ResponseWriter, r *http.Request) {
	pkgID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	bids, err := h.svc.ListBids(r.Context(), pkgID)
	if err != nil {
		writeError(w, err)
		return
	}
	if bids == nil {
		bids = []*store.Bid{}
	}
	writeJSON(w, http.StatusOK, bids)
}

// Supersede replaces a bid with a corrected one. vendor_id may be omitted.
func (h *BidsHandler) Supersede(w http.ResponseWriter, r *http.Request) {
	pkgID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	bidID, ok := uuidParam(w, r, "bid_id")
	if !ok {
		return
	}
	var req BidRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bid, err := h.svc.SupersedeBid(r.Context(), actorID(r), pkgID, bidID, req.bid())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}

func (h *BidsHandler) Compliance(w http.ResponseWriter, r *http.Request) {
	pkgID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	bidID, ok := uuidParam(w, r, "bid_id")
	if !ok {
		return
	}
	var signals store.ComplianceSignals
	if !decodeBody(w, r, &signals) {
		return
	}

	bid, err := h.svc.UpdateCompliance(r.Context(), actorID(r), pkgID, bidID, signals)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}
