package award

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// Contract is the awarded scope of a package and its current value.
type Contract struct {
	PackageID    uuid.UUID            `json:"package_id"`
	BidID        uuid.UUID            `json:"bid_id"`
	VendorID     string               `json:"vendor_id"`
	VendorName   string               `json:"vendor_name"`
	BaseAmount   decimal.Decimal      `json:"base_amount"`
	Alternates   []store.Alternate    `json:"alternates"`
	ChangeOrders []*store.ChangeOrder `json:"change_orders"`
	Value        decimal.Decimal      `json:"value"`
}

// ContractValue is the bid amount plus accepted alternate deltas plus change
// order deltas.
func ContractValue(amount decimal.Decimal, alternates []store.Alternate, changeOrders []*store.ChangeOrder) decimal.Decimal {
	v := amount
	for _, a := range alternates {
		v = v.Add(a.CostDelta)
	}
	for _, co := range changeOrders {
		v = v.Add(co.CostDelta)
	}
	return v
}

// BuildContract assembles the contract for an awarded package from the
// awarded bid and the change orders recorded since.
func BuildContract(pkg *store.Package, bid *store.Bid, changeOrders []*store.ChangeOrder) (*Contract, error) {
	if pkg.Status != store.PackageAwarded || pkg.AwardedBidID == nil {
		return nil, &evaluation.PackageStateError{PackageID: pkg.ID, Status: pkg.Status, Op: "read contract"}
	}
	if bid == nil || bid.ID != *pkg.AwardedBidID {
		return nil, &evaluation.AwardError{PackageID: pkg.ID, Reason: "awarded bid not found"}
	}

	alts, err := selectAlternates(pkg.ID, bid, pkg.AcceptedAlternates)
	if err != nil {
		return nil, err
	}
	if changeOrders == nil {
		changeOrders = []*store.ChangeOrder{}
	}
	return &Contract{
		PackageID:    pkg.ID,
		BidID:        bid.ID,
		VendorID:     bid.VendorID,
		VendorName:   bid.VendorName,
		BaseAmount:   bid.Amount,
		Alternates:   alts,
		ChangeOrders: changeOrders,
		Value:        ContractValue(bid.Amount, alts, changeOrders),
	}, nil
}

// ValidateChangeOrder checks a change order can be recorded against pkg.
func ValidateChangeOrder(pkg *store.Package, co *store.ChangeOrder) error {
	if pkg.Status != store.PackageAwarded {
		return &evaluation.PackageStateError{PackageID: pkg.ID, Status: pkg.Status, Op: "record a change order"}
	}
	if co.Description == "" {
		return &evaluation.AwardError{PackageID: pkg.ID, Reason: "change order needs a description"}
	}
	if !store.FitsAmountScale(co.CostDelta) {
		return &evaluation.AwardError{PackageID: pkg.ID, Reason: "cost delta has more than two decimal places"}
	}
	return nil
}
