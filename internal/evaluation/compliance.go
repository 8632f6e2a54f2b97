package evaluation

import (
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// Classify derives a bid's compliance state from its signals alone. Price and
// score play no part.
func Classify(s store.ComplianceSignals) store.ComplianceState {
	switch {
	case !s.Reviewed:
		return store.ComplianceUnderReview
	case len(s.MissingDocuments) > 0:
		return store.ComplianceRejected
	case s.BondRequired && !s.BondProvided:
		return store.ComplianceRejected
	case s.OpenClarifications > 0:
		return store.ComplianceClarificationNeeded
	default:
		return store.ComplianceCompliant
	}
}

// ComplianceReason explains a classification in a few words.
func ComplianceReason(s store.ComplianceSignals) string {
	switch {
	case !s.Reviewed:
		return "compliance checks not yet run"
	case len(s.MissingDocuments) > 0:
		return "missing required documents"
	case s.BondRequired && !s.BondProvided:
		return "bond required but not provided"
	case s.OpenClarifications > 0:
		return "open clarification items"
	default:
		return "all compliance checks passed"
	}
}

var complianceTransitions = map[store.ComplianceState][]store.ComplianceState{
	store.ComplianceUnderReview: {
		store.ComplianceClarificationNeeded,
		store.ComplianceCompliant,
		store.ComplianceRejected,
	},
	store.ComplianceClarificationNeeded: {
		store.ComplianceCompliant,
		store.ComplianceRejected,
	},
}

// ValidateComplianceTransition enforces the forward-only compliance path.
// Staying in the same state is always allowed; nothing leaves rejected or
// compliant.
func ValidateComplianceTransition(from, to store.ComplianceState) error {
	if from == "" {
		from = store.ComplianceUnderReview
	}
	if from == to {
		return nil
	}
	for _, allowed := range complianceTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &TransitionError{Subject: "bid compliance", From: string(from), To: string(to)}
}
