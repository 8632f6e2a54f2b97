// Package procurement runs bid packages through their lifecycle: it owns
// persistence, events and the audit trail around the evaluation engine.
package procurement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Tender/internal/evaluation"
	"github.com/MikeSquared-Agency/Tender/internal/hermes"
	"github.com/MikeSquared-Agency/Tender/internal/store"
)

type Service struct {
	store          store.Store
	hermes         hermes.Client
	engine         *evaluation.Engine
	defaultWeights store.CriteriaWeightSet
	logger         *slog.Logger
	now            func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Service. h may be nil, in which case no events are
// published. defaultWeights apply to packages created without weights.
func New(s store.Store, h hermes.Client, e *evaluation.Engine, defaultWeights store.CriteriaWeightSet, logger *slog.Logger) *Service {
	if defaultWeights == nil {
		defaultWeights = evaluation.DefaultWeights()
	}
	return &Service{
		store:          s,
		hermes:         h,
		engine:         e,
		defaultWeights: defaultWeights,
		logger:         logger,
		now:            time.Now,
		stopCh:         make(chan struct{}),
	}
}

// Start runs the background loops until Stop is called or ctx ends: every
// interval, bidding is closed on packages past their due date and, with a
// hermes client, package statistics are published.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go s.deadlineLoop(ctx, interval)
	if s.hermes != nil {
		s.wg.Add(1)
		go s.statsLoop(ctx, interval)
	}
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Service) statsLoop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishStats(ctx)
		}
	}
}

func (s *Service) publishStats(ctx context.Context) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		s.logger.Error("failed to load stats", "error", err)
		return
	}
	s.publish(hermes.SubjectStats, hermes.StatsEvent{
		Bidding:     stats.TotalBidding,
		Evaluation:  stats.TotalEvaluation,
		Awarded:     stats.TotalAwarded,
		Cancelled:   stats.TotalCancelled,
		Bids:        stats.TotalBids,
		Evaluations: stats.TotalEvaluated,
		Timestamp:   time.Now().UTC(),
	})
}

func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.GetStats(ctx)
}

func (s *Service) Events(ctx context.Context, packageID uuid.UUID) ([]*store.PackageEvent, error) {
	if _, err := s.GetPackage(ctx, packageID); err != nil {
		return nil, err
	}
	return s.store.GetPackageEvents(ctx, packageID)
}

func (s *Service) publish(subject string, data interface{}) {
	if s.hermes == nil {
		return
	}
	if err := s.hermes.Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// recordEvent appends to the audit trail. Failures are logged, not returned:
// the state change they describe has already been committed.
func (s *Service) recordEvent(ctx context.Context, packageID uuid.UUID, event, actor string, payload map[string]interface{}) {
	if err := s.store.CreatePackageEvent(ctx, &store.PackageEvent{
		PackageID: packageID,
		Event:     event,
		Actor:     actor,
		Payload:   payload,
	}); err != nil {
		s.logger.Error("failed to record package event", "package_id", packageID, "event", event, "error", err)
	}
}
