package evaluation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// Snapshot is a package and its active bids at one point in time. The engine
// never modifies it.
type Snapshot struct {
	Package *store.Package
	Bids    []*store.Bid
}

// Exclusion records why a bid was left out of the ranking.
type Exclusion struct {
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason"`
}

// BidEvaluation is the engine's verdict on one bid.
type BidEvaluation struct {
	BidID            uuid.UUID             `json:"bid_id"`
	VendorID         string                `json:"vendor_id"`
	VendorName       string                `json:"vendor_name"`
	Amount           decimal.Decimal       `json:"amount"`
	Compliance       store.ComplianceState `json:"compliance"`
	ComplianceReason string                `json:"compliance_reason"`
	Breakdown        *ScoreBreakdown       `json:"breakdown,omitempty"`
	Rank             int                   `json:"rank,omitempty"`
	Exclusion        *Exclusion            `json:"exclusion,omitempty"`
}

// ExcludedBid lists a bid left out of the ranking. Err holds the structured
// error and is not serialized.
type ExcludedBid struct {
	BidID  uuid.UUID   `json:"bid_id"`
	Kind   ErrorKind   `json:"kind"`
	Reason string      `json:"reason"`
	Err    KindedError `json:"-"`
}

// Result is the complete, deterministic output of one evaluation.
type Result struct {
	PackageID      uuid.UUID               `json:"package_id"`
	SnapshotDigest string                  `json:"snapshot_digest"`
	Weights        store.CriteriaWeightSet `json:"weights"`
	PriceRange     *PriceRange             `json:"price_range,omitempty"`
	Bids           []BidEvaluation         `json:"bids"`
	Ranking        []RankedBid             `json:"ranking"`
	Excluded       []ExcludedBid           `json:"excluded,omitempty"`
	Recommendation Recommendation          `json:"recommendation"`
	Frontier       []uuid.UUID             `json:"frontier,omitempty"`
}

// Bid returns the evaluation of one bid.
func (r *Result) Bid(id uuid.UUID) (*BidEvaluation, bool) {
	for i := range r.Bids {
		if r.Bids[i].BidID == id {
			return &r.Bids[i], true
		}
	}
	return nil, false
}

// Options configures an Engine.
type Options struct {
	Taxonomy      Taxonomy
	Tolerance     float64
	ParetoEnabled bool
}

// Engine evaluates bid packages. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	taxonomy      Taxonomy
	tolerance     float64
	paretoEnabled bool
	logger        *slog.Logger
}

// NewEngine creates an Engine. A nil taxonomy means DefaultTaxonomy and a
// non-positive tolerance means DefaultTolerance.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if opts.Taxonomy == nil {
		opts.Taxonomy = DefaultTaxonomy()
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		taxonomy:      opts.Taxonomy,
		tolerance:     opts.Tolerance,
		paretoEnabled: opts.ParetoEnabled,
		logger:        logger,
	}
}

// ValidateWeights checks w against the engine's taxonomy and tolerance.
func (e *Engine) ValidateWeights(w store.CriteriaWeightSet) error {
	return ValidateWeights(w, e.taxonomy, e.tolerance)
}

// Evaluate scores, ranks and selects a recommendation for a package in
// evaluation. Weight and package errors are fatal; bid-level errors exclude
// only the offending bid and are reported in Result.Excluded.
func (e *Engine) Evaluate(snap Snapshot) (*Result, error) {
	pkg := snap.Package
	if pkg == nil {
		return nil, &InvalidPackageError{Reason: "package missing"}
	}
	if pkg.Status != store.PackageEvaluation {
		return nil, &PackageStateError{PackageID: pkg.ID, Status: pkg.Status, Op: "evaluate"}
	}
	if err := validatePackage(snap); err != nil {
		return nil, err
	}
	if err := e.ValidateWeights(pkg.Weights); err != nil {
		return nil, err
	}

	result := &Result{
		PackageID:      pkg.ID,
		Weights:        copyWeights(pkg.Weights),
		Bids:           make([]BidEvaluation, len(snap.Bids)),
		Ranking:        []RankedBid{},
	}

	var priced []PricedBid
	for i, bid := range snap.Bids {
		be := BidEvaluation{
			BidID:            bid.ID,
			VendorID:         bid.VendorID,
			VendorName:       bid.VendorName,
			Amount:           bid.Amount,
			Compliance:       Classify(bid.Compliance),
			ComplianceReason: ComplianceReason(bid.Compliance),
		}
		if err := checkBid(bid, pkg.Weights); err != nil {
			be.Exclusion = &Exclusion{Kind: err.Kind(), Reason: err.Error()}
			result.Excluded = append(result.Excluded, ExcludedBid{BidID: bid.ID, Kind: err.Kind(), Reason: err.Error(), Err: err})
			e.logger.Debug("bid excluded", "package_id", pkg.ID, "bid_id", bid.ID, "kind", err.Kind(), "error", err)
		} else {
			priced = append(priced, PricedBid{BidID: bid.ID, Amount: bid.Amount})
		}
		result.Bids[i] = be
	}

	digest, err := Digest(snap)
	if err != nil {
		return nil, err
	}
	result.SnapshotDigest = digest

	prices, priceRange := NormalizePrices(priced)
	if len(priced) > 0 {
		result.PriceRange = &priceRange
	}

	var scored []ScoredBid
	var candidates []FrontierCandidate
	for i, bid := range snap.Bids {
		be := &result.Bids[i]
		if be.Exclusion != nil {
			continue
		}
		breakdown := Aggregate(pkg.Weights, bid.RawScores, prices[bid.ID])
		be.Breakdown = &breakdown
		scored = append(scored, ScoredBid{
			BidID:        bid.ID,
			Amount:       bid.Amount,
			VendorRating: bid.VendorRating,
			SubmittedAt:  bid.SubmittedAt,
			Total:        breakdown.Total,
			Compliance:   be.Compliance,
		})
		candidates = append(candidates, FrontierCandidate{
			BidID:     bid.ID,
			Amount:    bid.Amount,
			Technical: technicalScore(breakdown),
		})
	}

	result.Ranking = Rank(scored)
	ranks := make(map[uuid.UUID]int, len(result.Ranking))
	for _, rb := range result.Ranking {
		ranks[rb.BidID] = rb.Rank
	}
	for i := range result.Bids {
		result.Bids[i].Rank = ranks[result.Bids[i].BidID]
	}

	result.Recommendation = SelectRecommendation(result.Ranking, len(snap.Bids))

	if e.paretoEnabled && len(candidates) > 0 {
		onFrontier := make(map[uuid.UUID]bool)
		for _, c := range ComputeFrontier(candidates) {
			onFrontier[c.BidID] = true
		}
		for _, rb := range result.Ranking {
			if onFrontier[rb.BidID] {
				result.Frontier = append(result.Frontier, rb.BidID)
			}
		}
	}

	e.logger.Debug("package evaluated",
		"package_id", pkg.ID,
		"bids", len(snap.Bids),
		"ranked", len(result.Ranking),
		"excluded", len(result.Excluded),
		"recommendation", result.Recommendation.Reason,
	)
	return result, nil
}

func copyWeights(w store.CriteriaWeightSet) store.CriteriaWeightSet {
	out := make(store.CriteriaWeightSet, len(w))
	for c, v := range w {
		out[c] = v
	}
	return out
}

func validatePackage(snap Snapshot) error {
	pkg := snap.Package
	if pkg.ID == uuid.Nil {
		return &InvalidPackageError{Reason: "missing id"}
	}
	if !pkg.EstimatedValue.IsPositive() {
		return &InvalidPackageError{PackageID: pkg.ID, Reason: "estimated value must be positive"}
	}
	seen := make(map[uuid.UUID]bool, len(snap.Bids))
	for _, b := range snap.Bids {
		if b == nil {
			return &InvalidPackageError{PackageID: pkg.ID, Reason: "nil bid"}
		}
		if seen[b.ID] {
			return &InvalidPackageError{PackageID: pkg.ID, Reason: "duplicate bid " + b.ID.String()}
		}
		seen[b.ID] = true
	}
	return nil
}

// checkBid applies the per-bid boundary checks. Any error excludes the bid.
func checkBid(bid *store.Bid, weights store.CriteriaWeightSet) KindedError {
	if bid.ID == uuid.Nil {
		return &InvalidBidError{BidID: bid.ID, Reason: "missing id"}
	}
	if !bid.Amount.IsPositive() {
		return &InvalidBidError{BidID: bid.ID, Reason: "amount must be positive"}
	}
	if !ValidRating(bid.VendorRating) {
		return &InvalidBidError{BidID: bid.ID, Reason: "vendor rating outside [0,5]"}
	}
	if err := CheckScores(bid, weights); err != nil {
		return err.(KindedError)
	}
	return nil
}

// ValidRating reports whether r is a finite vendor rating in [0,5].
func ValidRating(r float64) bool {
	return !math.IsNaN(r) && r >= 0 && r <= 5
}

type digestBid struct {
	ID           uuid.UUID                  `json:"id"`
	VendorID     string                     `json:"vendor_id"`
	Amount       string                     `json:"amount"`
	SubmittedAt  time.Time                  `json:"submitted_at"`
	Compliance   store.ComplianceSignals    `json:"compliance"`
	RawScores    map[store.Criterion]string `json:"raw_scores"`
	VendorRating string                     `json:"vendor_rating"`
}

type digestInput struct {
	PackageID uuid.UUID                  `json:"package_id"`
	Weights   map[store.Criterion]string `json:"weights"`
	Bids      []digestBid                `json:"bids"`
}

// Digest fingerprints the evaluation-relevant content of a snapshot: the
// package weights and, in input order, every bid field that can affect
// scoring, ranking or compliance. Floats are written with strconv so that
// NaN and infinities digest like any other value.
func Digest(snap Snapshot) (string, error) {
	in := digestInput{
		PackageID: snap.Package.ID,
		Weights:   formatFloats(snap.Package.Weights),
		Bids:      make([]digestBid, len(snap.Bids)),
	}
	for i, b := range snap.Bids {
		in.Bids[i] = digestBid{
			ID:           b.ID,
			VendorID:     b.VendorID,
			Amount:       b.Amount.String(),
			SubmittedAt:  b.SubmittedAt.UTC(),
			Compliance:   b.Compliance,
			RawScores:    formatFloats(b.RawScores),
			VendorRating: formatFloat(b.VendorRating),
		}
	}
	data, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloats[M ~map[store.Criterion]float64](m M) map[store.Criterion]string {
	out := make(map[store.Criterion]string, len(m))
	for c, v := range m {
		out[c] = formatFloat(v)
	}
	return out
}
