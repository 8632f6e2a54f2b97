package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

func TestPackageStatusValues(t *testing.T) {
	statuses := []PackageStatus{PackageBidding, PackageEvaluation, PackageAwarded, PackageCancelled}
	expected := []string{"bidding", "evaluation", "awarded", "cancelled"}
	for i, s := range statuses {
		if string(s) != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], s)
		}
	}
}

func TestPackageStatusClosed(t *testing.T) {
	if PackageBidding.Closed() || PackageEvaluation.Closed() {
		t.Error("open statuses reported closed")
	}
	if !PackageAwarded.Closed() || !PackageCancelled.Closed() {
		t.Error("terminal statuses reported open")
	}
}

func TestComplianceStateValues(t *testing.T) {
	states := []ComplianceState{ComplianceUnderReview, ComplianceClarificationNeeded, ComplianceCompliant, ComplianceRejected}
	expected := []string{"under_review", "clarification_needed", "compliant", "rejected"}
	for i, s := range states {
		if string(s) != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], s)
		}
	}
}

func TestBidJSONKeepsDecimalPrecision(t *testing.T) {
	b := Bid{Amount: decimal.RequireFromString("2650000.10")}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	var back Bid
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Amount.Equal(b.Amount) {
		t.Errorf("expected %s, got %s", b.Amount, back.Amount)
	}
}

func TestFitsAmountScale(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"2650000", true},
		{"2650000.1", true},
		{"2650000.10", true},
		{"2650000.100", true},
		{"2650000.105", false},
		{"-1250.75", true},
		{"0.001", false},
	}
	for _, tt := range tests {
		if got := FitsAmountScale(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Errorf("FitsAmountScale(%s) = %v, want %v", tt.amount, got, tt.want)
		}
	}
}

func newTestPackage(t *testing.T, m *MemoryStore) *Package {
	t.Helper()
	p := &Package{
		Title:          "Curtain wall",
		TradeCategory:  "envelope",
		EstimatedValue: decimal.NewFromInt(1500000),
		Weights:        CriteriaWeightSet{"price": 60, "quality": 40},
	}
	if err := m.CreatePackage(context.Background(), p); err != nil {
		t.Fatalf("CreatePackage: %v", err)
	}
	return p
}

func newTestBid(packageID uuid.UUID, vendor string, amount int64, at time.Time) *Bid {
	return &Bid{
		PackageID:   packageID,
		VendorID:    vendor,
		Amount:      decimal.NewFromInt(amount),
		SubmittedAt: at,
		RawScores:   map[Criterion]float64{"quality": 80},
	}
}

func TestMemoryStorePackages(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newTestPackage(t, m)

	if p.ID == uuid.Nil || p.Status != PackageBidding || p.Version != 1 {
		t.Fatalf("unexpected created package %+v", p)
	}

	got, _ := m.GetPackage(ctx, p.ID)
	got.Weights["price"] = 0
	again, _ := m.GetPackage(ctx, p.ID)
	if again.Weights["price"] != 60 {
		t.Error("returned package shares state with the store")
	}

	missing, err := m.GetPackage(ctx, uuid.New())
	if missing != nil || err != nil {
		t.Errorf("expected nil, nil for missing package, got %v, %v", missing, err)
	}

	status := PackageBidding
	list, _ := m.ListPackages(ctx, PackageFilter{Status: &status})
	if len(list) != 1 {
		t.Errorf("expected 1 bidding package, got %d", len(list))
	}
	list, _ = m.ListPackages(ctx, PackageFilter{TradeCategory: "electrical"})
	if len(list) != 0 {
		t.Errorf("expected no electrical packages, got %d", len(list))
	}
}

func TestMemoryStoreTransition(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newTestPackage(t, m)

	if _, err := m.TransitionPackage(ctx, p.ID, PackageBidding, PackageEvaluation, 7); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict on stale version, got %v", err)
	}
	moved, err := m.TransitionPackage(ctx, p.ID, PackageBidding, PackageEvaluation, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.Status != PackageEvaluation || moved.Version != 2 {
		t.Errorf("unexpected package after transition %+v", moved)
	}
	if _, err := m.TransitionPackage(ctx, p.ID, PackageBidding, PackageEvaluation, 2); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict on stale status, got %v", err)
	}
	if _, err := m.TransitionPackage(ctx, uuid.New(), PackageBidding, PackageEvaluation, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemoryStoreConcurrentTransition(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPackage(t, m)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.TransitionPackage(context.Background(), p.ID, PackageBidding, PackageEvaluation, 1); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("expected exactly one transition to win, got %d", wins)
	}
}

func TestMemoryStoreBids(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newTestPackage(t, m)
	t0 := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	late := newTestBid(p.ID, "late", 1100000, t0.Add(time.Hour))
	early := newTestBid(p.ID, "early", 1200000, t0)
	for _, b := range []*Bid{late, early} {
		if err := m.CreateBid(ctx, b); err != nil {
			t.Fatalf("CreateBid: %v", err)
		}
	}
	if late.ComplianceState != ComplianceUnderReview {
		t.Errorf("expected new bids under review, got %s", late.ComplianceState)
	}

	bids, _ := m.ListBids(ctx, p.ID)
	if len(bids) != 2 || bids[0].ID != early.ID {
		t.Fatalf("expected bids in submission order")
	}

	if err := m.CreateBid(ctx, newTestBid(uuid.New(), "ghost", 1, t0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found for missing package, got %v", err)
	}

	if _, err := m.TransitionPackage(ctx, p.ID, PackageBidding, PackageEvaluation, 1); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateBid(ctx, newTestBid(p.ID, "tardy", 1000000, t0)); !errors.Is(err, ErrNotBidding) {
		t.Errorf("expected ErrNotBidding, got %v", err)
	}
}

func TestMemoryStoreSupersede(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newTestPackage(t, m)

	orig := newTestBid(p.ID, "acme", 1000000, time.Time{})
	if err := m.CreateBid(ctx, orig); err != nil {
		t.Fatal(err)
	}

	fix := newTestBid(uuid.Nil, "acme", 990000, time.Time{})
	if err := m.SupersedeBid(ctx, orig.ID, fix); err != nil {
		t.Fatalf("SupersedeBid: %v", err)
	}
	if fix.PackageID != p.ID || fix.SupersedesID == nil || *fix.SupersedesID != orig.ID {
		t.Errorf("replacement not linked: %+v", fix)
	}

	bids, _ := m.ListBids(ctx, p.ID)
	if len(bids) != 1 || bids[0].ID != fix.ID {
		t.Fatalf("expected only the replacement to be active")
	}

	old, _ := m.GetBid(ctx, orig.ID)
	if old.SupersededBy == nil || *old.SupersededBy != fix.ID {
		t.Error("original should point at its replacement")
	}
	if !old.Amount.Equal(decimal.NewFromInt(1000000)) {
		t.Error("original bid amount must not change")
	}

	if err := m.SupersedeBid(ctx, orig.ID, newTestBid(uuid.Nil, "acme", 1, time.Time{})); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict superseding twice, got %v", err)
	}
}

func TestMemoryStoreCompliance(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newTestPackage(t, m)
	b := newTestBid(p.ID, "acme", 1000000, time.Time{})
	_ = m.CreateBid(ctx, b)

	signals := ComplianceSignals{Reviewed: true, OpenClarifications: 1}
	if err := m.UpdateBidCompliance(ctx, b.ID, signals, ComplianceClarificationNeeded); err != nil {
		t.Fatal(err)
	}
	got, _ := m.GetBid(ctx, b.ID)
	if got.ComplianceState != ComplianceClarificationNeeded || got.Compliance.OpenClarifications != 1 {
		t.Errorf("compliance not stored: %+v", got)
	}

	_, _ = m.TransitionPackage(ctx, p.ID, PackageBidding, PackageCancelled, 1)
	if err := m.UpdateBidCompliance(ctx, b.ID, signals, ComplianceCompliant); !errors.Is(err, ErrPackageClosed) {
		t.Errorf("expected ErrPackageClosed, got %v", err)
	}
}

func TestMemoryStoreEvaluationHistory(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newTestPackage(t, m)
	bidID := uuid.New()

	first := &EvaluationRecord{PackageID: p.ID, SnapshotDigest: "aaa", RecommendedBidID: &bidID, Result: json.RawMessage(`{}`)}
	if err := m.SaveEvaluation(ctx, first); err != nil {
		t.Fatal(err)
	}
	if first.Version != 1 || first.ID == uuid.Nil {
		t.Fatalf("unexpected first record %+v", first)
	}

	same := &EvaluationRecord{PackageID: p.ID, SnapshotDigest: "aaa", Result: json.RawMessage(`{}`)}
	if err := m.SaveEvaluation(ctx, same); err != nil {
		t.Fatal(err)
	}
	if same.ID != first.ID || same.Version != 1 {
		t.Error("same digest should return the existing record")
	}

	second := &EvaluationRecord{PackageID: p.ID, SnapshotDigest: "bbb", Result: json.RawMessage(`{}`)}
	_ = m.SaveEvaluation(ctx, second)
	if second.Version != 2 {
		t.Errorf("expected version 2, got %d", second.Version)
	}

	history, _ := m.ListEvaluations(ctx, p.ID)
	if len(history) != 2 {
		t.Errorf("expected 2 records, got %d", len(history))
	}
	latest, _ := m.GetLatestEvaluation(ctx, p.ID)
	if latest.SnapshotDigest != "bbb" {
		t.Errorf("expected latest digest bbb, got %s", latest.SnapshotDigest)
	}
	pkg, _ := m.GetPackage(ctx, p.ID)
	if pkg.RecommendedBidID != nil {
		t.Error("recommendation should follow the latest evaluation")
	}
}

func TestMemoryStoreAwardAndChangeOrders(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newTestPackage(t, m)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	rejected := newTestBid(p.ID, "vendor-a", 1000, at)
	compliant := newTestBid(p.ID, "vendor-b", 1100, at.Add(time.Minute))
	compliant.ComplianceState = ComplianceCompliant
	for _, b := range []*Bid{rejected, compliant} {
		if err := m.CreateBid(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	bidID, compliantID := rejected.ID, compliant.ID

	co := &ChangeOrder{PackageID: p.ID, Description: "extra glazing", CostDelta: decimal.NewFromInt(5000)}
	if err := m.CreateChangeOrder(ctx, co); !errors.Is(err, ErrNotAwarded) {
		t.Errorf("expected ErrNotAwarded, got %v", err)
	}

	pick := func(id uuid.UUID, alts ...string) AwardFunc {
		return func(*Package, *EvaluationRecord, []*Bid) (*AwardSelection, error) {
			return &AwardSelection{BidID: id, AcceptedAlternates: alts}, nil
		}
	}

	if _, err := m.AwardPackage(ctx, p.ID, 1, pick(bidID)); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict awarding from bidding, got %v", err)
	}
	_, _ = m.TransitionPackage(ctx, p.ID, PackageBidding, PackageEvaluation, 1)

	if _, err := m.AwardPackage(ctx, p.ID, 2, pick(uuid.New())); !errors.Is(err, ErrNotEligible) {
		t.Errorf("expected unknown bid to be ineligible, got %v", err)
	}
	if err := m.UpdateBidCompliance(ctx, bidID, ComplianceSignals{Reviewed: true, BondRequired: true}, ComplianceRejected); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AwardPackage(ctx, p.ID, 2, pick(bidID)); !errors.Is(err, ErrNotEligible) {
		t.Errorf("expected rejected bid to be ineligible, got %v", err)
	}

	chooseErr := errors.New("no recommendation")
	if _, err := m.AwardPackage(ctx, p.ID, 2, func(*Package, *EvaluationRecord, []*Bid) (*AwardSelection, error) {
		return nil, chooseErr
	}); !errors.Is(err, chooseErr) {
		t.Errorf("expected choose error to be returned, got %v", err)
	}

	var seen []*Bid
	awarded, err := m.AwardPackage(ctx, p.ID, 2, func(pkg *Package, latest *EvaluationRecord, bids []*Bid) (*AwardSelection, error) {
		seen = bids
		return &AwardSelection{BidID: compliantID, AcceptedAlternates: []string{"ALT-1"}}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Errorf("expected choose to see 2 active bids, got %d", len(seen))
	}
	if awarded.Status != PackageAwarded || *awarded.AwardedBidID != compliantID || awarded.Version != 3 {
		t.Errorf("unexpected awarded package %+v", awarded)
	}

	if err := m.SaveEvaluation(ctx, &EvaluationRecord{PackageID: p.ID, SnapshotDigest: "x"}); !errors.Is(err, ErrPackageClosed) {
		t.Errorf("evaluation history should be frozen, got %v", err)
	}

	if err := m.CreateChangeOrder(ctx, co); err != nil {
		t.Fatal(err)
	}
	cos, _ := m.ListChangeOrders(ctx, p.ID)
	if len(cos) != 1 || !cos[0].CostDelta.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("unexpected change orders %+v", cos)
	}
}

func TestMemoryStoreEventsAndStats(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	p := newTestPackage(t, m)
	_ = m.CreateBid(ctx, newTestBid(p.ID, "acme", 1, time.Time{}))

	_ = m.CreatePackageEvent(ctx, &PackageEvent{PackageID: p.ID, Event: "created", Actor: "pm-1"})
	events, _ := m.GetPackageEvents(ctx, p.ID)
	if len(events) != 1 || events[0].Actor != "pm-1" {
		t.Errorf("unexpected events %+v", events)
	}

	stats, _ := m.GetStats(ctx)
	if stats.TotalBidding != 1 || stats.TotalBids != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
