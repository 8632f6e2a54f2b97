package evaluation

import (
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// Recommendation reasons.
const (
	ReasonSelected        = "highest-ranked compliant bid"
	ReasonNoBids          = "no bids"
	ReasonNoScoredBids    = "no scored bids"
	ReasonNoCompliantBids = "no compliant bid"
)

// Recommendation is the selected awardable bid, or none.
type Recommendation struct {
	BidID   *uuid.UUID  `json:"bid_id,omitempty"`
	Reason  string      `json:"reason"`
	Skipped []uuid.UUID `json:"skipped,omitempty"`
}

// None reports whether no bid was recommended.
func (r Recommendation) None() bool { return r.BidID == nil }

// SelectRecommendation walks the ranking from the top and returns the first
// compliant bid. Higher-ranked bids passed over are listed in Skipped.
// submitted is the number of bids in the package before any exclusion.
func SelectRecommendation(ranking []RankedBid, submitted int) Recommendation {
	if submitted == 0 {
		return Recommendation{Reason: ReasonNoBids}
	}
	if len(ranking) == 0 {
		return Recommendation{Reason: ReasonNoScoredBids}
	}

	var skipped []uuid.UUID
	for _, rb := range ranking {
		if rb.Compliance != store.ComplianceCompliant {
			skipped = append(skipped, rb.BidID)
			continue
		}
		id := rb.BidID
		return Recommendation{BidID: &id, Reason: ReasonSelected, Skipped: skipped}
	}
	return Recommendation{Reason: ReasonNoCompliantBids, Skipped: skipped}
}
