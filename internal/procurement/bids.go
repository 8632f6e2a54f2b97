package procurement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/hermes"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// checkSubmission rejects bids that could never be evaluated. Score
// completeness is left to the engine, which excludes the bid instead.
func checkSubmission(b *store.Bid) error {
	if b.VendorID == "" {
		return &evaluation.InvalidBidError{BidID: b.ID, Reason: "vendor id is required"}
	}
	if !b.Amount.IsPositive() {
		return &evaluation.InvalidBidError{BidID: b.ID, Reason: "amount must be positive"}
	}
	if !store.FitsAmountScale(b.Amount) {
		return &evaluation.InvalidBidError{BidID: b.ID, Reason: "amount has more than two decimal places"}
	}
	if !evaluation.ValidRating(b.VendorRating) {
		return &evaluation.InvalidBidError{BidID: b.ID, Reason: "vendor rating outside [0,5]"}
	}
	seen := make(map[string]bool, len(b.Alternates))
	for _, a := range b.Alternates {
		if a.Code == "" || seen[a.Code] {
			return &evaluation.InvalidBidError{BidID: b.ID, Reason: "alternate codes must be unique and non-empty"}
		}
		seen[a.Code] = true
	}
	return nil
}

func (s *Service) SubmitBid(ctx context.Context, actor string, packageID uuid.UUID, b *store.Bid) (*store.Bid, error) {
	if _, err := s.GetPackage(ctx, packageID); err != nil {
		return nil, err
	}
	if err := checkSubmission(b); err != nil {
		return nil, err
	}

	b.PackageID = packageID
	b.SubmittedAt = s.now().UTC()
	b.SupersedesID = nil
	b.SupersededBy = nil
	b.ComplianceState = evaluation.Classify(b.Compliance)
	if err := s.store.CreateBid(ctx, b); err != nil {
		return nil, fmt.Errorf("submit bid: %w", err)
	}
	bidsSubmittedTotal.Inc()

	s.recordEvent(ctx, packageID, "bid_submitted", actor, map[string]interface{}{
		"bid_id":    b.ID.String(),
		"vendor_id": b.VendorID,
		"amount":    b.Amount.String(),
	})
	s.publish(hermes.SubjectBidSubmitted(b.ID.String()), hermes.BidSubmittedEvent{
		BidID:     b.ID.String(),
		PackageID: packageID.String(),
		VendorID:  b.VendorID,
		Amount:    b.Amount.String(),
	})
	s.logger.Info("bid submitted", "package_id", packageID, "bid_id", b.ID, "vendor_id", b.VendorID)
	return b, nil
}

// SupersedeBid records a correction: the replacement becomes the active bid
// and the original is kept unchanged for the audit trail.
func (s *Service) SupersedeBid(ctx context.Context, actor string, packageID, bidID uuid.UUID, replacement *store.Bid) (*store.Bid, error) {
	old, err := s.getBid(ctx, packageID, bidID)
	if err != nil {
		return nil, err
	}
	if replacement.VendorID == "" {
		replacement.VendorID = old.VendorID
	}
	if replacement.VendorID != old.VendorID {
		return nil, &evaluation.InvalidBidError{BidID: bidID, Reason: "a correction cannot change the vendor"}
	}
	if err := checkSubmission(replacement); err != nil {
		return nil, err
	}

	replacement.SubmittedAt = s.now().UTC()
	replacement.ComplianceState = evaluation.Classify(replacement.Compliance)
	if err := s.store.SupersedeBid(ctx, bidID, replacement); err != nil {
		return nil, fmt.Errorf("supersede bid: %w", err)
	}
	bidsSubmittedTotal.Inc()

	s.recordEvent(ctx, packageID, "bid_superseded", actor, map[string]interface{}{
		"bid_id":          replacement.ID.String(),
		"supersedes_id":   bidID.String(),
		"amount":          replacement.Amount.String(),
		"previous_amount": old.Amount.String(),
	})
	s.publish(hermes.SubjectBidSuperseded(bidID.String()), hermes.BidSubmittedEvent{
		BidID:        replacement.ID.String(),
		PackageID:    packageID.String(),
		VendorID:     replacement.VendorID,
		Amount:       replacement.Amount.String(),
		SupersedesID: bidID.String(),
	})
	s.logger.Info("bid superseded", "package_id", packageID, "bid_id", replacement.ID, "supersedes", bidID)
	return replacement, nil
}

func (s *Service) ListBids(ctx context.Context, packageID uuid.UUID) ([]*store.Bid, error) {
	if _, err := s.GetPackage(ctx, packageID); err != nil {
		return nil, err
	}
	return s.store.ListBids(ctx, packageID)
}

// getBid loads a bid and checks it belongs to packageID. A nil packageID
// skips the ownership check.
func (s *Service) getBid(ctx context.Context, packageID, bidID uuid.UUID) (*store.Bid, error) {
	b, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("get bid: %w", err)
	}
	if b == nil || (packageID != uuid.Nil && b.PackageID != packageID) {
		return nil, fmt.Errorf("bid %s: %w", bidID, store.ErrNotFound)
	}
	return b, nil
}

// UpdateCompliance replaces a bid's compliance signals and reclassifies it.
// The new state must be reachable from the current one.
func (s *Service) UpdateCompliance(ctx context.Context, actor string, packageID, bidID uuid.UUID, signals store.ComplianceSignals) (*store.Bid, error) {
	b, err := s.getBid(ctx, packageID, bidID)
	if err != nil {
		return nil, err
	}

	from := b.ComplianceState
	to := evaluation.Classify(signals)
	if err := evaluation.ValidateComplianceTransition(from, to); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBidCompliance(ctx, bidID, signals, to); err != nil {
		return nil, fmt.Errorf("update compliance: %w", err)
	}
	b.Compliance = signals
	b.ComplianceState = to

	reason := evaluation.ComplianceReason(signals)
	s.recordEvent(ctx, b.PackageID, "compliance_updated", actor, map[string]interface{}{
		"bid_id": bidID.String(),
		"from":   string(from),
		"to":     string(to),
		"reason": reason,
	})
	s.publish(hermes.SubjectBidCompliance(bidID.String()), hermes.BidComplianceEvent{
		BidID:     bidID.String(),
		PackageID: b.PackageID.String(),
		From:      string(from),
		To:        string(to),
		Reason:    reason,
	})
	s.logger.Info("bid compliance updated", "bid_id", bidID, "from", from, "to", to, "actor", actor)
	return b, nil
}
