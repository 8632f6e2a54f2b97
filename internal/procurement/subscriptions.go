package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/hermes"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// SetupSubscriptions registers the NATS handlers for inbound compliance
// reports.
func (s *Service) SetupSubscriptions() error {
	if s.hermes == nil {
		return nil
	}
	return s.hermes.Subscribe(hermes.SubjectComplianceReported, func(_ string, data []byte) error {
		var evt hermes.ComplianceReportedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return hermes.Permanent(fmt.Errorf("invalid compliance report: %w", err))
		}
		return s.handleComplianceReported(context.Background(), evt)
	})
}

// handleComplianceReported applies one report. Reports that can never apply
// are returned as permanent errors; store failures are retried.
func (s *Service) handleComplianceReported(ctx context.Context, evt hermes.ComplianceReportedEvent) error {
	bidID, err := uuid.Parse(evt.BidID)
	if err != nil {
		return hermes.Permanent(fmt.Errorf("compliance report bid id %q: %w", evt.BidID, err))
	}
	actor := "compliance-report"
	if evt.Reviewer != "" {
		actor = evt.Reviewer
	}
	signals := store.ComplianceSignals{
		BondRequired:       evt.BondRequired,
		BondProvided:       evt.BondProvided,
		MissingDocuments:   evt.MissingDocuments,
		OpenClarifications: evt.OpenClarifications,
		Reviewed:           true,
	}
	_, err = s.UpdateCompliance(ctx, actor, uuid.Nil, bidID, signals)
	switch {
	case err == nil:
		return nil
	case evaluation.KindOf(err) != "",
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrPackageClosed):
		return hermes.Permanent(err)
	default:
		return err
	}
}
