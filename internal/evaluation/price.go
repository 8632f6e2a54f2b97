package evaluation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PricedBid is the input to price normalization: one base amount per bid.
// Alternates are never included.
type PricedBid struct {
	BidID  uuid.UUID
	Amount decimal.Decimal
}

// PriceRange is the spread of base amounts among the bids being scored.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// NormalizePrices maps each bid's amount onto a 0-100 price score where the
// lowest amount scores 100 and the highest 0. When every amount is equal each
// bid scores 100.
//
//	priceScore = 100 - (amount - min) / (max - min) * 100
func NormalizePrices(bids []PricedBid) (map[uuid.UUID]float64, PriceRange) {
	scores := make(map[uuid.UUID]float64, len(bids))
	if len(bids) == 0 {
		return scores, PriceRange{}
	}

	min, max := bids[0].Amount, bids[0].Amount
	for _, b := range bids[1:] {
		if b.Amount.LessThan(min) {
			min = b.Amount
		}
		if b.Amount.GreaterThan(max) {
			max = b.Amount
		}
	}
	spread := max.Sub(min)

	for _, b := range bids {
		if spread.IsZero() {
			scores[b.BidID] = 100
			continue
		}
		penalty := b.Amount.Sub(min).Div(spread).Mul(hundred)
		scores[b.BidID] = round1(hundred.Sub(penalty))
	}
	return scores, PriceRange{Min: min, Max: max}
}

// round1 rounds half away from zero to one decimal place.
func round1(d decimal.Decimal) float64 {
	return d.Round(1).InexactFloat64()
}
