package procurement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/hermes"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// Evaluation pairs a stored record with its decoded result.
type Evaluation struct {
	Record *store.EvaluationRecord `json:"record"`
	Result *evaluation.Result      `json:"result"`
	// Unchanged is set when the snapshot matched the latest record and
	// nothing new was stored.
	Unchanged bool `json:"unchanged"`
}

// Evaluate runs the engine over the package's active bids and appends the
// result to the evaluation history. Evaluating an unchanged snapshot returns
// the existing record.
func (s *Service) Evaluate(ctx context.Context, actor string, id uuid.UUID) (*Evaluation, error) {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.ListBids(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}

	start := time.Now()
	result, err := s.engine.Evaluate(evaluation.Snapshot{Package: pkg, Bids: bids})
	evaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		evaluationsTotal.WithLabelValues("rejected").Inc()
		s.logger.Warn("evaluation rejected", "package_id", id, "kind", evaluation.KindOf(err), "error", err)
		return nil, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode evaluation: %w", err)
	}
	rec := &store.EvaluationRecord{
		PackageID:        id,
		SnapshotDigest:   result.SnapshotDigest,
		RecommendedBidID: result.Recommendation.BidID,
		Result:           data,
		CreatedBy:        actor,
	}
	previous, err := s.store.GetLatestEvaluation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load latest evaluation: %w", err)
	}
	if err := s.store.SaveEvaluation(ctx, rec); err != nil {
		return nil, fmt.Errorf("save evaluation: %w", err)
	}

	unchanged := previous != nil && previous.ID == rec.ID
	if unchanged {
		evaluationsTotal.WithLabelValues("unchanged").Inc()
		stored, err := decodeResult(rec)
		if err != nil {
			return nil, err
		}
		return &Evaluation{Record: rec, Result: stored, Unchanged: true}, nil
	}

	evaluationsTotal.WithLabelValues("recorded").Inc()
	for _, ex := range result.Excluded {
		bidsExcludedTotal.WithLabelValues(string(ex.Kind)).Inc()
	}

	recommended := ""
	if !result.Recommendation.None() {
		recommended = result.Recommendation.BidID.String()
	}
	s.recordEvent(ctx, id, "evaluated", actor, map[string]interface{}{
		"version":        rec.Version,
		"recommendation": recommended,
		"reason":         result.Recommendation.Reason,
	})
	s.publish(hermes.SubjectPackageEvaluated(id.String()), hermes.PackageEvaluatedEvent{
		PackageID:        id.String(),
		EvaluationID:     rec.ID.String(),
		Version:          rec.Version,
		SnapshotDigest:   rec.SnapshotDigest,
		RecommendedBidID: recommended,
		Reason:           result.Recommendation.Reason,
		Ranked:           len(result.Ranking),
		Excluded:         len(result.Excluded),
	})
	s.logger.Info("package evaluated", "package_id", id, "version", rec.Version,
		"recommendation", recommended, "reason", result.Recommendation.Reason, "excluded", len(result.Excluded))
	return &Evaluation{Record: rec, Result: result}, nil
}

// LatestEvaluation returns store.ErrNotFound when the package has never been
// evaluated.
func (s *Service) LatestEvaluation(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	if _, err := s.GetPackage(ctx, id); err != nil {
		return nil, err
	}
	rec, err := s.store.GetLatestEvaluation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load latest evaluation: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("evaluation for package %s: %w", id, store.ErrNotFound)
	}
	result, err := decodeResult(rec)
	if err != nil {
		return nil, err
	}
	return &Evaluation{Record: rec, Result: result}, nil
}

func (s *Service) EvaluationHistory(ctx context.Context, id uuid.UUID) ([]*store.EvaluationRecord, error) {
	if _, err := s.GetPackage(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListEvaluations(ctx, id)
}

// Explanation is one bid's standing in the latest evaluation.
type Explanation struct {
	PackageID         uuid.UUID                 `json:"package_id"`
	EvaluationVersion int                       `json:"evaluation_version"`
	Weights           store.CriteriaWeightSet   `json:"weights"`
	PriceRange        *evaluation.PriceRange    `json:"price_range,omitempty"`
	Bid               evaluation.BidEvaluation  `json:"bid"`
	RankedBids        int                       `json:"ranked_bids"`
	Recommended       bool                      `json:"recommended"`
	Recommendation    evaluation.Recommendation `json:"recommendation"`
	OnFrontier        bool                      `json:"on_frontier"`
}

func (s *Service) Explain(ctx context.Context, packageID, bidID uuid.UUID) (*Explanation, error) {
	ev, err := s.LatestEvaluation(ctx, packageID)
	if err != nil {
		return nil, err
	}
	be, ok := ev.Result.Bid(bidID)
	if !ok {
		return nil, fmt.Errorf("bid %s in evaluation %d: %w", bidID, ev.Record.Version, store.ErrNotFound)
	}

	onFrontier := false
	for _, id := range ev.Result.Frontier {
		if id == bidID {
			onFrontier = true
			break
		}
	}
	rec := ev.Result.Recommendation
	return &Explanation{
		PackageID:         packageID,
		EvaluationVersion: ev.Record.Version,
		Weights:           ev.Result.Weights,
		PriceRange:        ev.Result.PriceRange,
		Bid:               *be,
		RankedBids:        len(ev.Result.Ranking),
		Recommended:       !rec.None() && *rec.BidID == bidID,
		Recommendation:    rec,
		OnFrontier:        onFrontier,
	}, nil
}

func decodeResult(rec *store.EvaluationRecord) (*evaluation.Result, error) {
	var result evaluation.Result
	if err := json.Unmarshal(rec.Result, &result); err != nil {
		return nil, fmt.Errorf("decode evaluation %d: %w", rec.Version, err)
	}
	return &result, nil
}
