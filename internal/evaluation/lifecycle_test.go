package evaluation

import (
	"testing"

	"github.com/MikeSquared-Agency/Tender/internal/store"
)

func TestValidatePackageTransition(t *testing.T) {
	allowed := [][2]store.PackageStatus{
		{store.PackageBidding, store.PackageEvaluation},
		{store.PackageBidding, store.PackageCancelled},
		{store.PackageEvaluation, store.PackageAwarded},
		{store.PackageEvaluation, store.PackageCancelled},
	}
	for _, tr := range allowed {
		if err := ValidatePackageTransition(tr[0], tr[1]); err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tr[0], tr[1], err)
		}
	}

	denied := [][2]store.PackageStatus{
		{store.PackageBidding, store.PackageAwarded},
		{store.PackageEvaluation, store.PackageBidding},
		{store.PackageAwarded, store.PackageEvaluation},
		{store.PackageCancelled, store.PackageBidding},
		{store.PackageBidding, store.PackageBidding},
	}
	for _, tr := range denied {
		err := ValidatePackageTransition(tr[0], tr[1])
		if KindOf(err) != KindInvalidTransition {
			t.Errorf("%s -> %s: expected invalid transition, got %v", tr[0], tr[1], err)
		}
	}
}
