package evaluation

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// Score sources.
const (
	SourceComputed = "computed"
	SourceRaw      = "raw"
)

// CriterionScore captures one criterion's contribution to a bid's total.
type CriterionScore struct {
	Criterion store.Criterion `json:"criterion"`
	Score     float64         `json:"score"`
	Weight    float64         `json:"weight"`
	Weighted  float64         `json:"weighted"`
	Source    string          `json:"source"`
}

// ScoreBreakdown is the per-criterion and total score of one bid.
type ScoreBreakdown struct {
	Criteria []CriterionScore `json:"criteria"`
	Total    float64          `json:"total"`
}

// Score returns the normalized score for c and whether it was weighted.
func (b ScoreBreakdown) Score(c store.Criterion) (float64, bool) {
	for _, cs := range b.Criteria {
		if cs.Criterion == c {
			return cs.Score, true
		}
	}
	return 0, false
}

// CheckScores validates a bid's raw scores against the weight set. Every
// weighted non-price criterion needs a score in [0,100]; price is computed and
// must not be supplied. Missing criteria are reported before range errors.
func CheckScores(bid *store.Bid, weights store.CriteriaWeightSet) error {
	criteria := sortedCriteria(weights)

	var missing []store.Criterion
	for _, c := range criteria {
		if c == store.CriterionPrice {
			continue
		}
		if _, ok := bid.RawScores[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &IncompleteBidError{BidID: bid.ID, Missing: missing}
	}

	if v, ok := bid.RawScores[store.CriterionPrice]; ok {
		return &InvalidScoreError{BidID: bid.ID, Criterion: store.CriterionPrice, Score: v}
	}
	for _, c := range criteria {
		if c == store.CriterionPrice {
			continue
		}
		v := bid.RawScores[c]
		if math.IsNaN(v) || v < 0 || v > 100 {
			return &InvalidScoreError{BidID: bid.ID, Criterion: c, Score: v}
		}
	}
	return nil
}

// Aggregate combines a bid's raw scores and its computed price score into a
// weighted total:
//
//	total = sum over c of (weight_c / 100) * score_c
//
// The raw scores must already have passed CheckScores. Criteria are listed in
// name order and the total is rounded to one decimal.
func Aggregate(weights store.CriteriaWeightSet, raw map[store.Criterion]float64, priceScore float64) ScoreBreakdown {
	criteria := sortedCriteria(weights)
	out := ScoreBreakdown{Criteria: make([]CriterionScore, 0, len(criteria))}

	total := decimal.Zero
	for _, c := range criteria {
		score, source := raw[c], SourceRaw
		if c == store.CriterionPrice {
			score, source = priceScore, SourceComputed
		}
		weighted := decimal.NewFromFloat(weights[c]).Div(hundred).Mul(decimal.NewFromFloat(score))
		total = total.Add(weighted)
		out.Criteria = append(out.Criteria, CriterionScore{
			Criterion: c,
			Score:     score,
			Weight:    weights[c],
			Weighted:  weighted.Round(2).InexactFloat64(),
			Source:    source,
		})
	}
	out.Total = round1(total)
	return out
}

// technicalScore is the weighted mean of the non-price criteria, used for the
// price/quality frontier. Returns 0 when no non-price criterion is weighted.
func technicalScore(b ScoreBreakdown) float64 {
	num, den := decimal.Zero, decimal.Zero
	for _, cs := range b.Criteria {
		if cs.Criterion == store.CriterionPrice {
			continue
		}
		w := decimal.NewFromFloat(cs.Weight)
		num = num.Add(w.Mul(decimal.NewFromFloat(cs.Score)))
		den = den.Add(w)
	}
	if den.IsZero() {
		return 0
	}
	return num.Div(den).Round(2).InexactFloat64()
}
