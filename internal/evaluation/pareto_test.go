package evaluation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func candidate(amount int64, technical float64) FrontierCandidate {
	return FrontierCandidate{BidID: uuid.New(), Amount: decimal.NewFromInt(amount), Technical: technical}
}

func TestComputeFrontier(t *testing.T) {
	cheap := candidate(1000, 70)
	strong := candidate(1500, 95)
	balanced := candidate(1200, 85)
	dominated := candidate(1600, 80)

	frontier := ComputeFrontier([]FrontierCandidate{cheap, strong, balanced, dominated})
	if len(frontier) != 3 {
		t.Fatalf("expected 3 on frontier, got %d", len(frontier))
	}
	for _, c := range frontier {
		if c.BidID == dominated.BidID {
			t.Error("dominated bid should not be on the frontier")
		}
	}
	if frontier[0].BidID != cheap.BidID || frontier[2].BidID != balanced.BidID {
		t.Error("expected input order to be preserved")
	}
}

func TestComputeFrontierEqualCandidates(t *testing.T) {
	a := candidate(1000, 80)
	b := candidate(1000, 80)
	frontier := ComputeFrontier([]FrontierCandidate{a, b})
	if len(frontier) != 2 {
		t.Errorf("identical bids do not dominate each other, got %d", len(frontier))
	}
}

func TestComputeFrontierSmall(t *testing.T) {
	if f := ComputeFrontier(nil); len(f) != 0 {
		t.Errorf("expected empty frontier, got %d", len(f))
	}
	one := []FrontierCandidate{candidate(1, 1)}
	if f := ComputeFrontier(one); len(f) != 1 {
		t.Errorf("expected single candidate frontier, got %d", len(f))
	}
}
