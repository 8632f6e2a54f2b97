// Package award turns an evaluation into a binding award and keeps the
// running contract value for awarded packages.
package award

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// Decision is a validated award, ready to be persisted.
type Decision struct {
	PackageID          uuid.UUID         `json:"package_id"`
	BidID              uuid.UUID         `json:"bid_id"`
	AcceptedAlternates []string          `json:"accepted_alternates"`
	BaseAmount         decimal.Decimal   `json:"base_amount"`
	Alternates         []store.Alternate `json:"alternates"`
	Value              decimal.Decimal   `json:"value"`
}

// Decide validates an award of pkg against its latest evaluation. bids must
// be the package's current active bids: if they no longer match the
// evaluated snapshot the award is refused and the package must be
// re-evaluated first. Only the recommended bid can be awarded, and every
// accepted alternate code must exist on that bid.
func Decide(pkg *store.Package, latest *evaluation.Result, bids []*store.Bid, accepted []string) (*Decision, error) {
	if pkg.Status != store.PackageEvaluation {
		return nil, &evaluation.PackageStateError{PackageID: pkg.ID, Status: pkg.Status, Op: "award"}
	}
	if latest == nil {
		return nil, &evaluation.AwardError{PackageID: pkg.ID, Reason: "package has not been evaluated"}
	}

	digest, err := evaluation.Digest(evaluation.Snapshot{Package: pkg, Bids: bids})
	if err != nil {
		return nil, err
	}
	if digest != latest.SnapshotDigest {
		return nil, &evaluation.AwardError{PackageID: pkg.ID, Reason: "bids changed since the last evaluation"}
	}

	rec := latest.Recommendation
	if rec.None() {
		return nil, &evaluation.AwardError{PackageID: pkg.ID, Reason: "no recommendation: " + rec.Reason}
	}

	var bid *store.Bid
	for _, b := range bids {
		if b.ID == *rec.BidID {
			bid = b
			break
		}
	}
	if bid == nil {
		return nil, &evaluation.AwardError{PackageID: pkg.ID, Reason: "recommended bid " + rec.BidID.String() + " not found"}
	}

	alts, err := selectAlternates(pkg.ID, bid, accepted)
	if err != nil {
		return nil, err
	}

	codes := make([]string, len(alts))
	for i, a := range alts {
		codes[i] = a.Code
	}
	return &Decision{
		PackageID:          pkg.ID,
		BidID:              bid.ID,
		AcceptedAlternates: codes,
		BaseAmount:         bid.Amount,
		Alternates:         alts,
		Value:              ContractValue(bid.Amount, alts, nil),
	}, nil
}

func selectAlternates(pkgID uuid.UUID, bid *store.Bid, accepted []string) ([]store.Alternate, error) {
	byCode := make(map[string]store.Alternate, len(bid.Alternates))
	for _, a := range bid.Alternates {
		byCode[a.Code] = a
	}

	out := make([]store.Alternate, 0, len(accepted))
	seen := make(map[string]bool, len(accepted))
	for _, code := range accepted {
		if seen[code] {
			return nil, &evaluation.AwardError{PackageID: pkgID, Reason: "alternate " + code + " accepted twice"}
		}
		seen[code] = true
		a, ok := byCode[code]
		if !ok {
			return nil, &evaluation.AwardError{PackageID: pkgID, Reason: "alternate " + code + " not offered by the awarded bid"}
		}
		out = append(out, a)
	}
	return out, nil
}
