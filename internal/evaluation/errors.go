package evaluation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// ErrorKind lets callers branch on a failure without matching strings.
type ErrorKind string

const (
	KindInvalidWeights    ErrorKind = "invalid_weights"
	KindInvalidScore      ErrorKind = "invalid_score"
	KindIncompleteBid     ErrorKind = "incomplete_bid"
	KindInvalidBid        ErrorKind = "invalid_bid"
	KindInvalidPackage    ErrorKind = "invalid_package"
	KindPackageState      ErrorKind = "package_state"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindAward             ErrorKind = "award"
)

// KindedError is implemented by every structured error in this package.
type KindedError interface {
	error
	Kind() ErrorKind
}

// KindOf returns the kind of the first structured error in err's chain, or
// "" when there is none.
func KindOf(err error) ErrorKind {
	var ke KindedError
	if errors.As(err, &ke) {
		return ke.Kind()
	}
	return ""
}

// WeightRule names the weight-set rule that was violated.
type WeightRule string

const (
	RuleMissing          WeightRule = "missing"
	RuleUnknownCriterion WeightRule = "unknown_criterion"
	RuleNegativeWeight   WeightRule = "negative_weight"
	RuleSumMismatch      WeightRule = "sum_mismatch"
)

type InvalidWeightsError struct {
	Rule      WeightRule      `json:"rule"`
	Criterion store.Criterion `json:"criterion,omitempty"`
	Weight    float64         `json:"weight,omitempty"`
	Sum       float64         `json:"sum,omitempty"`
}

func (e *InvalidWeightsError) Kind() ErrorKind { return KindInvalidWeights }

func (e *InvalidWeightsError) Error() string {
	switch e.Rule {
	case RuleMissing:
		return "invalid weights: no criteria weighted"
	case RuleUnknownCriterion:
		return fmt.Sprintf("invalid weights: unknown criterion %q", e.Criterion)
	case RuleNegativeWeight:
		return fmt.Sprintf("invalid weights: negative weight %.4f for %q", e.Weight, e.Criterion)
	default:
		return fmt.Sprintf("invalid weights: sum to %.4f, must sum to 100", e.Sum)
	}
}

type InvalidScoreError struct {
	BidID     uuid.UUID       `json:"bid_id"`
	Criterion store.Criterion `json:"criterion"`
	Score     float64         `json:"score"`
}

func (e *InvalidScoreError) Kind() ErrorKind { return KindInvalidScore }

func (e *InvalidScoreError) Error() string {
	if e.Criterion == store.CriterionPrice {
		return fmt.Sprintf("bid %s: price score is computed and must not be supplied", e.BidID)
	}
	return fmt.Sprintf("bid %s: score %.2f for %q outside [0,100]", e.BidID, e.Score, e.Criterion)
}

type IncompleteBidError struct {
	BidID   uuid.UUID         `json:"bid_id"`
	Missing []store.Criterion `json:"missing"`
}

func (e *IncompleteBidError) Kind() ErrorKind { return KindIncompleteBid }

func (e *IncompleteBidError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("bid %s: missing scores for %s", e.BidID, strings.Join(names, ", "))
}

type InvalidBidError struct {
	BidID  uuid.UUID `json:"bid_id"`
	Reason string    `json:"reason"`
}

func (e *InvalidBidError) Kind() ErrorKind { return KindInvalidBid }

func (e *InvalidBidError) Error() string {
	return fmt.Sprintf("bid %s: %s", e.BidID, e.Reason)
}

type InvalidPackageError struct {
	PackageID uuid.UUID `json:"package_id"`
	Reason    string    `json:"reason"`
}

func (e *InvalidPackageError) Kind() ErrorKind { return KindInvalidPackage }

func (e *InvalidPackageError) Error() string {
	return fmt.Sprintf("package %s: %s", e.PackageID, e.Reason)
}

// PackageStateError is returned when an operation is not allowed in the
// package's current status.
type PackageStateError struct {
	PackageID uuid.UUID           `json:"package_id"`
	Status    store.PackageStatus `json:"status"`
	Op        string              `json:"op"`
}

func (e *PackageStateError) Kind() ErrorKind { return KindPackageState }

func (e *PackageStateError) Error() string {
	return fmt.Sprintf("package %s: cannot %s while %s", e.PackageID, e.Op, e.Status)
}

// TransitionError reports a disallowed status change, for packages or for
// bid compliance states.
type TransitionError struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to"`
}

func (e *TransitionError) Kind() ErrorKind { return KindInvalidTransition }

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Subject, e.From, e.To)
}

type AwardError struct {
	PackageID uuid.UUID `json:"package_id"`
	Reason    string    `json:"reason"`
}

func (e *AwardError) Kind() ErrorKind { return KindAward }

func (e *AwardError) Error() string {
	return fmt.Sprintf("package %s: award: %s", e.PackageID, e.Reason)
}
