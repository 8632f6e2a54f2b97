package evaluation

import (
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

var packageTransitions = map[store.PackageStatus][]store.PackageStatus{
	store.PackageBidding:    {store.PackageEvaluation, store.PackageCancelled},
	store.PackageEvaluation: {store.PackageAwarded, store.PackageCancelled},
}

// ValidatePackageTransition enforces bidding -> evaluation -> awarded, with
// cancellation allowed from either open state. Awarded and cancelled are
// terminal.
func ValidatePackageTransition(from, to store.PackageStatus) error {
	for _, allowed := range packageTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &TransitionError{Subject: "package", From: string(from), To: string(to)}
}
