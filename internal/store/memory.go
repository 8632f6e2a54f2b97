package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept entirely in process memory. It backs local
// runs without a database and the service tests. Values are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	packages     map[uuid.UUID]*Package
	bids         map[uuid.UUID]*Bid
	evaluations  map[uuid.UUID][]*EvaluationRecord
	changeOrders map[uuid.UUID][]*ChangeOrder
	events       map[uuid.UUID][]*PackageEvent

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		packages:     make(map[uuid.UUID]*Package),
		bids:         make(map[uuid.UUID]*Bid),
		evaluations:  make(map[uuid.UUID][]*EvaluationRecord),
		changeOrders: make(map[uuid.UUID][]*ChangeOrder),
		events:       make(map[uuid.UUID][]*PackageEvent),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Close() error { return nil }

// --- copies ---

func copyPackage(p *Package) *Package {
	c := *p
	if p.Weights != nil {
		c.Weights = make(CriteriaWeightSet, len(p.Weights))
		for k, v := range p.Weights {
			c.Weights[k] = v
		}
	}
	if p.RecommendedBidID != nil {
		id := *p.RecommendedBidID
		c.RecommendedBidID = &id
	}
	if p.AwardedBidID != nil {
		id := *p.AwardedBidID
		c.AwardedBidID = &id
	}
	c.AcceptedAlternates = append([]string(nil), p.AcceptedAlternates...)
	return &c
}

func copyBid(b *Bid) *Bid {
	c := *b
	c.Compliance.MissingDocuments = append([]string(nil), b.Compliance.MissingDocuments...)
	if b.RawScores != nil {
		c.RawScores = make(map[Criterion]float64, len(b.RawScores))
		for k, v := range b.RawScores {
			c.RawScores[k] = v
		}
	}
	c.Alternates = append([]Alternate(nil), b.Alternates...)
	c.Schedule.Milestones = append([]Milestone(nil), b.Schedule.Milestones...)
	if b.SupersedesID != nil {
		id := *b.SupersedesID
		c.SupersedesID = &id
	}
	if b.SupersededBy != nil {
		id := *b.SupersededBy
		c.SupersededBy = &id
	}
	return &c
}

func copyEvaluation(r *EvaluationRecord) *EvaluationRecord {
	c := *r
	c.Result = append(json.RawMessage(nil), r.Result...)
	if r.RecommendedBidID != nil {
		id := *r.RecommendedBidID
		c.RecommendedBidID = &id
	}
	return &c
}

// --- Packages ---

func (m *MemoryStore) CreatePackage(_ context.Context, p *Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = uuid.New()
	if p.Status == "" {
		p.Status = PackageBidding
	}
	p.Version = 1
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.packages[p.ID] = copyPackage(p)
	return nil
}

func (m *MemoryStore) GetPackage(_ context.Context, id uuid.UUID) (*Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.packages[id]
	if !ok {
		return nil, nil
	}
	return copyPackage(p), nil
}

func (m *MemoryStore) ListPackages(_ context.Context, filter PackageFilter) ([]*Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Package
	for _, p := range m.packages {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.TradeCategory != "" && p.TradeCategory != filter.TradeCategory {
			continue
		}
		out = append(out, copyPackage(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) TransitionPackage(_ context.Context, id uuid.UUID, from, to PackageStatus, version int) (*Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != from || p.Version != version {
		return nil, ErrConflict
	}
	p.Status = to
	p.Version++
	p.UpdatedAt = m.now()
	return copyPackage(p), nil
}

// --- Bids ---

func (m *MemoryStore) insertBidLocked(b *Bid) {
	b.ID = uuid.New()
	b.CreatedAt = m.now()
	if b.SubmittedAt.IsZero() {
		b.SubmittedAt = b.CreatedAt
	}
	if b.ComplianceState == "" {
		b.ComplianceState = ComplianceUnderReview
	}
	m.bids[b.ID] = copyBid(b)
}

func (m *MemoryStore) CreateBid(_ context.Context, b *Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.packages[b.PackageID]
	if !ok {
		return ErrNotFound
	}
	if p.Status != PackageBidding {
		return ErrNotBidding
	}
	m.insertBidLocked(b)
	return nil
}

func (m *MemoryStore) GetBid(_ context.Context, id uuid.UUID) (*Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bids[id]
	if !ok {
		return nil, nil
	}
	return copyBid(b), nil
}

func (m *MemoryStore) ListBids(_ context.Context, packageID uuid.UUID) ([]*Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeBidsLocked(packageID), nil
}

func (m *MemoryStore) activeBidsLocked(packageID uuid.UUID) []*Bid {
	var out []*Bid
	for _, b := range m.bids {
		if b.PackageID == packageID && b.SupersededBy == nil {
			out = append(out, copyBid(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *MemoryStore) SupersedeBid(_ context.Context, oldID uuid.UUID, replacement *Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.bids[oldID]
	if !ok {
		return ErrNotFound
	}
	p := m.packages[old.PackageID]
	if p == nil || p.Status != PackageBidding {
		return ErrNotBidding
	}
	if old.SupersededBy != nil {
		return ErrConflict
	}

	replacement.PackageID = old.PackageID
	supersedes := oldID
	replacement.SupersedesID = &supersedes
	m.insertBidLocked(replacement)

	newID := replacement.ID
	old.SupersededBy = &newID
	return nil
}

func (m *MemoryStore) UpdateBidCompliance(_ context.Context, id uuid.UUID, signals ComplianceSignals, state ComplianceState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bids[id]
	if !ok {
		return ErrNotFound
	}
	if p := m.packages[b.PackageID]; p == nil || p.Status.Closed() {
		return ErrPackageClosed
	}
	signals.MissingDocuments = append([]string(nil), signals.MissingDocuments...)
	b.Compliance = signals
	b.ComplianceState = state
	return nil
}

// --- Evaluations ---

func (m *MemoryStore) SaveEvaluation(_ context.Context, rec *EvaluationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.packages[rec.PackageID]
	if !ok {
		return ErrNotFound
	}
	if p.Status.Closed() {
		return ErrPackageClosed
	}

	history := m.evaluations[rec.PackageID]
	rec.Version = 1
	if n := len(history); n > 0 {
		latest := history[n-1]
		if latest.SnapshotDigest == rec.SnapshotDigest {
			*rec = *copyEvaluation(latest)
			return nil
		}
		rec.Version = latest.Version + 1
	}

	rec.ID = uuid.New()
	rec.CreatedAt = m.now()
	m.evaluations[rec.PackageID] = append(history, copyEvaluation(rec))

	if rec.RecommendedBidID != nil {
		id := *rec.RecommendedBidID
		p.RecommendedBidID = &id
	} else {
		p.RecommendedBidID = nil
	}
	p.UpdatedAt = rec.CreatedAt
	return nil
}

func (m *MemoryStore) GetLatestEvaluation(_ context.Context, packageID uuid.UUID) (*EvaluationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.evaluations[packageID]
	if len(history) == 0 {
		return nil, nil
	}
	return copyEvaluation(history[len(history)-1]), nil
}

func (m *MemoryStore) ListEvaluations(_ context.Context, packageID uuid.UUID) ([]*EvaluationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.evaluations[packageID]
	out := make([]*EvaluationRecord, len(history))
	for i, r := range history {
		out[i] = copyEvaluation(r)
	}
	return out, nil
}

// --- Award ---

func (m *MemoryStore) AwardPackage(_ context.Context, id uuid.UUID, version int, choose AwardFunc) (*Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != PackageEvaluation || p.Version != version {
		return nil, ErrConflict
	}

	var latest *EvaluationRecord
	if history := m.evaluations[id]; len(history) > 0 {
		latest = copyEvaluation(history[len(history)-1])
	}
	bids := m.activeBidsLocked(id)
	sel, err := choose(copyPackage(p), latest, bids)
	if err != nil {
		return nil, err
	}
	if !eligible(sel, bids) {
		return nil, ErrNotEligible
	}

	awarded := sel.BidID
	p.Status = PackageAwarded
	p.AwardedBidID = &awarded
	p.AcceptedAlternates = append([]string{}, sel.AcceptedAlternates...)
	p.Version++
	p.UpdatedAt = m.now()
	return copyPackage(p), nil
}

func (m *MemoryStore) CreateChangeOrder(_ context.Context, co *ChangeOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.packages[co.PackageID]
	if !ok {
		return ErrNotFound
	}
	if p.Status != PackageAwarded {
		return ErrNotAwarded
	}
	co.ID = uuid.New()
	co.CreatedAt = m.now()
	c := *co
	m.changeOrders[co.PackageID] = append(m.changeOrders[co.PackageID], &c)
	return nil
}

func (m *MemoryStore) ListChangeOrders(_ context.Context, packageID uuid.UUID) ([]*ChangeOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ChangeOrder
	for _, co := range m.changeOrders[packageID] {
		c := *co
		out = append(out, &c)
	}
	return out, nil
}

// --- Events ---

func (m *MemoryStore) CreatePackageEvent(_ context.Context, e *PackageEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = m.now()
	c := *e
	m.events[e.PackageID] = append(m.events[e.PackageID], &c)
	return nil
}

func (m *MemoryStore) GetPackageEvents(_ context.Context, packageID uuid.UUID) ([]*PackageEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*PackageEvent
	for _, e := range m.events[packageID] {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (m *MemoryStore) GetStats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{}
	for _, p := range m.packages {
		switch p.Status {
		case PackageBidding:
			stats.TotalBidding++
		case PackageEvaluation:
			stats.TotalEvaluation++
		case PackageAwarded:
			stats.TotalAwarded++
		case PackageCancelled:
			stats.TotalCancelled++
		}
	}
	for _, b := range m.bids {
		if b.SupersededBy == nil {
			stats.TotalBids++
		}
	}
	for _, h := range m.evaluations {
		stats.TotalEvaluated += len(h)
	}
	return stats, nil
}
