package procurement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Tender/internal/award"
	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/hermes"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

type AwardOutcome struct {
	Package  *store.Package  `json:"package"`
	Decision *award.Decision `json:"decision"`
}

// Award pins the latest recommendation as the winning bid. version must match
// the package's current version.
func (s *Service) Award(ctx context.Context, actor string, id uuid.UUID, version int, acceptedAlternates []string) (*AwardOutcome, error) {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg.Status != store.PackageEvaluation {
		return nil, &evaluation.PackageStateError{PackageID: id, Status: pkg.Status, Op: "award"}
	}

	// Decide runs on the state read under the award lock.
	var (
		decision *award.Decision
		rec      *store.EvaluationRecord
		bids     []*store.Bid
	)
	updated, err := s.store.AwardPackage(ctx, id, version, func(locked *store.Package, latestRec *store.EvaluationRecord, active []*store.Bid) (*store.AwardSelection, error) {
		var latest *evaluation.Result
		if latestRec != nil {
			var err error
			if latest, err = decodeResult(latestRec); err != nil {
				return nil, err
			}
		}
		d, err := award.Decide(locked, latest, active, acceptedAlternates)
		if err != nil {
			return nil, err
		}
		decision, rec, bids = d, latestRec, active
		return &store.AwardSelection{BidID: d.BidID, AcceptedAlternates: d.AcceptedAlternates}, nil
	})
	if err != nil {
		if evaluation.KindOf(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("award package: %w", err)
	}
	awardsTotal.Inc()

	vendorID := ""
	for _, b := range bids {
		if b.ID == decision.BidID {
			vendorID = b.VendorID
		}
	}
	s.recordEvent(ctx, id, "awarded", actor, map[string]interface{}{
		"bid_id":              decision.BidID.String(),
		"accepted_alternates": decision.AcceptedAlternates,
		"contract_value":      decision.Value.String(),
		"evaluation_version":  rec.Version,
	})
	s.publish(hermes.SubjectPackageAwarded(id.String()), hermes.PackageAwardedEvent{
		PackageID:          id.String(),
		BidID:              decision.BidID.String(),
		VendorID:           vendorID,
		AcceptedAlternates: decision.AcceptedAlternates,
		ContractValue:      decision.Value.String(),
		Actor:              actor,
	})
	s.logger.Info("package awarded", "package_id", id, "bid_id", decision.BidID,
		"contract_value", decision.Value.String(), "actor", actor)
	return &AwardOutcome{Package: updated, Decision: decision}, nil
}

// Contract returns the awarded scope and its current value.
func (s *Service) Contract(ctx context.Context, id uuid.UUID) (*award.Contract, error) {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	var bid *store.Bid
	if pkg.AwardedBidID != nil {
		if bid, err = s.store.GetBid(ctx, *pkg.AwardedBidID); err != nil {
			return nil, fmt.Errorf("get awarded bid: %w", err)
		}
	}
	changeOrders, err := s.store.ListChangeOrders(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list change orders: %w", err)
	}
	return award.BuildContract(pkg, bid, changeOrders)
}

// RecordChangeOrder adjusts the contract value of an awarded package.
// Evaluation history is untouched.
func (s *Service) RecordChangeOrder(ctx context.Context, actor string, id uuid.UUID, description string, delta decimal.Decimal) (*store.ChangeOrder, *award.Contract, error) {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	co := &store.ChangeOrder{
		PackageID:   id,
		Description: description,
		CostDelta:   delta,
		CreatedBy:   actor,
	}
	if err := award.ValidateChangeOrder(pkg, co); err != nil {
		return nil, nil, err
	}
	if err := s.store.CreateChangeOrder(ctx, co); err != nil {
		return nil, nil, fmt.Errorf("record change order: %w", err)
	}

	contract, err := s.Contract(ctx, id)
	if err != nil {
		return co, nil, err
	}

	s.recordEvent(ctx, id, "change_order", actor, map[string]interface{}{
		"change_order_id": co.ID.String(),
		"cost_delta":      delta.String(),
		"contract_value":  contract.Value.String(),
	})
	s.publish(hermes.SubjectChangeOrder(id.String()), hermes.ChangeOrderEvent{
		ChangeOrderID: co.ID.String(),
		PackageID:     id.String(),
		CostDelta:     delta.String(),
		ContractValue: contract.Value.String(),
	})
	s.logger.Info("change order recorded", "package_id", id, "cost_delta", delta.String(),
		"contract_value", contract.Value.String())
	return co, contract, nil
}
