package procurement

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// deadlineActor is recorded on transitions made when bidding closes on its own.
const deadlineActor = "deadline"

func (s *Service) deadlineLoop(ctx context.Context, interval time.Duration) {
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
			s.closeExpiredBidding(ctx)
		}
	}
}

// closeExpiredBidding moves packages whose due date has passed from bidding
// to evaluation. Packages without a due date stay open.
func (s *Service) closeExpiredBidding(ctx context.Context) int {
	const pageSize = 100
	bidding := store.PackageBidding
	now := s.now()

	var expired []*store.Package
	for offset := 0; ; offset += pageSize {
		pkgs, err := s.store.ListPackages(ctx, store.PackageFilter{Status: &bidding, Limit: pageSize, Offset: offset})
		if err != nil {
			s.logger.Error("failed to list packages for deadline check", "error", err)
			return 0
		}
		for _, pkg := range pkgs {
			if !pkg.DueDate.IsZero() && !pkg.DueDate.After(now) {
				expired = append(expired, pkg)
			}
		}
		if len(pkgs) < pageSize {
			break
		}
	}

	closed := 0
	for _, pkg := range expired {
		if _, err := s.Transition(ctx, deadlineActor, pkg.ID, store.PackageEvaluation, pkg.Version); err != nil {
			s.logger.Warn("failed to close bidding", "package_id", pkg.ID, "error", err)
			continue
		}
		closed++
	}
	if closed > 0 {
		s.logger.Info("bidding closed at due date", "packages", closed)
	}
	return closed
}
