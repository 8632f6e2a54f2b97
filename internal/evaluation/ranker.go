package evaluation

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// ScoredBid is a bid that passed validation and carries a weighted total.
type ScoredBid struct {
	BidID        uuid.UUID
	Amount       decimal.Decimal
	VendorRating float64
	SubmittedAt  time.Time
	Total        float64
	Compliance   store.ComplianceState
}

// RankedBid is one position in the ranking. Rank is 1-based.
type RankedBid struct {
	Rank       int                   `json:"rank"`
	BidID      uuid.UUID             `json:"bid_id"`
	Total      float64               `json:"total"`
	Amount     decimal.Decimal       `json:"amount"`
	Compliance store.ComplianceState `json:"compliance"`
}

// Rank orders bids by total score (higher first), then amount (lower first),
// then vendor rating (higher first), then submission time (earlier first).
// Bids equal on all four keep their input order. Compliance is not
// considered.
func Rank(bids []ScoredBid) []RankedBid {
	ordered := make([]ScoredBid, len(bids))
	copy(ordered, bids)

	sort.SliceStable(ordered, func(i, j int) bool {
		return rankedBefore(ordered[i], ordered[j])
	})

	out := make([]RankedBid, len(ordered))
	for i, b := range ordered {
		out[i] = RankedBid{
			Rank:       i + 1,
			BidID:      b.BidID,
			Total:      b.Total,
			Amount:     b.Amount,
			Compliance: b.Compliance,
		}
	}
	return out
}

func rankedBefore(a, b ScoredBid) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c < 0
	}
	if a.VendorRating != b.VendorRating {
		return a.VendorRating > b.VendorRating
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}
