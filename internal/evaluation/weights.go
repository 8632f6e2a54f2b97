package evaluation

import (
	"math"
	"sort"

	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// DefaultTolerance is the allowed distance of a weight sum from 100.
const DefaultTolerance = 0.01

// Taxonomy is the set of criterion names a package may weight.
type Taxonomy map[store.Criterion]bool

// DefaultTaxonomy returns the built-in criteria.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		store.CriterionPrice:      true,
		store.CriterionSchedule:   true,
		store.CriterionExperience: true,
		store.CriterionQuality:    true,
		store.CriterionSafety:     true,
	}
}

// Extend returns a copy of t that also accepts the given criteria.
func (t Taxonomy) Extend(extra ...string) Taxonomy {
	out := make(Taxonomy, len(t)+len(extra))
	for c := range t {
		out[c] = true
	}
	for _, name := range extra {
		if name != "" {
			out[store.Criterion(name)] = true
		}
	}
	return out
}

// DefaultWeights returns the weight distribution used when a package is
// created without one.
func DefaultWeights() store.CriteriaWeightSet {
	return store.CriteriaWeightSet{
		store.CriterionPrice:      40,
		store.CriterionSchedule:   20,
		store.CriterionExperience: 20,
		store.CriterionQuality:    15,
		store.CriterionSafety:     5,
	}
}

// SumWeights returns the total of all weights.
func SumWeights(w store.CriteriaWeightSet) float64 {
	var sum float64
	for _, c := range sortedCriteria(w) {
		sum += w[c]
	}
	return sum
}

// ValidateWeights checks a weight set against the taxonomy. Rules are checked
// in order: missing, unknown criterion, negative weight, sum mismatch.
func ValidateWeights(w store.CriteriaWeightSet, taxonomy Taxonomy, tolerance float64) error {
	if len(w) == 0 {
		return &InvalidWeightsError{Rule: RuleMissing}
	}
	criteria := sortedCriteria(w)
	for _, c := range criteria {
		if !taxonomy[c] {
			return &InvalidWeightsError{Rule: RuleUnknownCriterion, Criterion: c}
		}
	}
	for _, c := range criteria {
		v := w[c]
		if v < 0 || math.IsNaN(v) {
			return &InvalidWeightsError{Rule: RuleNegativeWeight, Criterion: c, Weight: v}
		}
	}
	sum := SumWeights(w)
	if math.IsInf(sum, 0) || math.Abs(sum-100) > tolerance {
		return &InvalidWeightsError{Rule: RuleSumMismatch, Sum: sum}
	}
	return nil
}

// sortedCriteria returns the keys of w in a stable order so that float sums
// and reported offenders never depend on map iteration.
func sortedCriteria(w store.CriteriaWeightSet) []store.Criterion {
	out := make([]store.Criterion, 0, len(w))
	for c := range w {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
