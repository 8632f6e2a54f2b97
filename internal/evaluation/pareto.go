package evaluation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FrontierCandidate is a scored bid placed on the price/quality plane.
type FrontierCandidate struct {
	BidID     uuid.UUID       `json:"bid_id"`
	Amount    decimal.Decimal `json:"amount"`
	Technical float64         `json:"technical"`
}

// ComputeFrontier returns the bids no other bid beats on both price and
// technical merit, preserving input order.
// O(n^2) dominance check; packages rarely carry more than a few dozen bids.
func ComputeFrontier(candidates []FrontierCandidate) []FrontierCandidate {
	if len(candidates) <= 1 {
		return candidates
	}

	var frontier []FrontierCandidate
	for i := range candidates {
		dominated := false
		for j := range candidates {
			if i == j {
				continue
			}
			if dominates(candidates[j], candidates[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, candidates[i])
		}
	}
	return frontier
}

// dominates returns true if a is no more expensive and no less capable than b,
// and strictly better on at least one of the two.
func dominates(a, b FrontierCandidate) bool {
	if a.Amount.GreaterThan(b.Amount) || a.Technical < b.Technical {
		return false
	}
	return a.Amount.LessThan(b.Amount) || a.Technical > b.Technical
}
