package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/hermes"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

type CreatePackageInput struct {
	Title          string                  `json:"title"`
	TradeCategory  string                  `json:"trade_category"`
	EstimatedValue decimal.Decimal         `json:"estimated_value"`
	DueDate        time.Time               `json:"due_date"`
	Weights        store.CriteriaWeightSet `json:"weights"`
}

func (s *Service) CreatePackage(ctx context.Context, actor string, in CreatePackageInput) (*store.Package, error) {
	if in.Title == "" {
		return nil, &evaluation.InvalidPackageError{Reason: "title is required"}
	}
	if !in.EstimatedValue.IsPositive() {
		return nil, &evaluation.InvalidPackageError{Reason: "estimated value must be positive"}
	}
	if !store.FitsAmountScale(in.EstimatedValue) {
		return nil, &evaluation.InvalidPackageError{Reason: "estimated value has more than two decimal places"}
	}
	weights := in.Weights
	if len(weights) == 0 {
		weights = copyWeights(s.defaultWeights)
	}
	if err := s.engine.ValidateWeights(weights); err != nil {
		return nil, err
	}

	pkg := &store.Package{
		Title:          in.Title,
		TradeCategory:  in.TradeCategory,
		Status:         store.PackageBidding,
		EstimatedValue: in.EstimatedValue,
		DueDate:        in.DueDate,
		Weights:        weights,
		CreatedBy:      actor,
	}
	if err := s.store.CreatePackage(ctx, pkg); err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}

	s.recordEvent(ctx, pkg.ID, "created", actor, map[string]interface{}{
		"title":           pkg.Title,
		"estimated_value": pkg.EstimatedValue.String(),
	})
	s.publish(hermes.SubjectPackageCreated(pkg.ID.String()), hermes.PackageCreatedEvent{
		PackageID:      pkg.ID.String(),
		Title:          pkg.Title,
		TradeCategory:  pkg.TradeCategory,
		EstimatedValue: pkg.EstimatedValue.String(),
		CreatedBy:      actor,
	})
	s.logger.Info("package created", "package_id", pkg.ID, "title", pkg.Title, "actor", actor)
	return pkg, nil
}

// GetPackage returns store.ErrNotFound for an unknown id.
func (s *Service) GetPackage(ctx context.Context, id uuid.UUID) (*store.Package, error) {
	pkg, err := s.store.GetPackage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get package: %w", err)
	}
	if pkg == nil {
		return nil, fmt.Errorf("package %s: %w", id, store.ErrNotFound)
	}
	return pkg, nil
}

func (s *Service) ListPackages(ctx context.Context, filter store.PackageFilter) ([]*store.Package, error) {
	return s.store.ListPackages(ctx, filter)
}

// Transition moves a package along its lifecycle. Awarding goes through
// Award, which needs an evaluation.
func (s *Service) Transition(ctx context.Context, actor string, id uuid.UUID, to store.PackageStatus, version int) (*store.Package, error) {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := evaluation.ValidatePackageTransition(pkg.Status, to); err != nil {
		return nil, err
	}
	if to == store.PackageAwarded {
		return nil, &evaluation.AwardError{PackageID: id, Reason: "use the award operation"}
	}

	from := pkg.Status
	updated, err := s.store.TransitionPackage(ctx, id, from, to, version)
	if err != nil {
		return nil, fmt.Errorf("transition package: %w", err)
	}

	s.recordEvent(ctx, id, "transitioned", actor, map[string]interface{}{
		"from": string(from),
		"to":   string(to),
	})
	s.publish(hermes.SubjectPackageTransitioned(id.String()), hermes.PackageTransitionedEvent{
		PackageID: id.String(),
		From:      string(from),
		To:        string(to),
		Version:   updated.Version,
		Actor:     actor,
	})
	s.logger.Info("package transitioned", "package_id", id, "from", from, "to", to, "actor", actor)
	return updated, nil
}

func copyWeights(w store.CriteriaWeightSet) store.CriteriaWeightSet {
	out := make(store.CriteriaWeightSet, len(w))
	for c, v := range w {
		out[c] = v
	}
	return out
}
