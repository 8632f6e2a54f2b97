package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by mutations that target a missing record.
	// Lookups return nil, nil instead.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an optimistic version check fails.
	ErrConflict = errors.New("version conflict")
	// ErrNotBidding is returned when a bid is written to a package that no longer accepts bids.
	ErrNotBidding = errors.New("package is not accepting bids")
	// ErrPackageClosed is returned for writes against an awarded or cancelled package.
	ErrPackageClosed = errors.New("package is closed")
	// ErrNotAwarded is returned for contract operations on a package without an award.
	ErrNotAwarded = errors.New("package has not been awarded")
	// ErrNotEligible is returned when an award names a bid that is not an
	// active compliant bid of the package.
	ErrNotEligible = errors.New("bid is not eligible for award")
)

type PackageStatus string

const (
	PackageBidding    PackageStatus = "bidding"
	PackageEvaluation PackageStatus = "evaluation"
	PackageAwarded    PackageStatus = "awarded"
	PackageCancelled  PackageStatus = "cancelled"
)

// Closed reports whether the status is terminal.
func (s PackageStatus) Closed() bool {
	return s == PackageAwarded || s == PackageCancelled
}

// Criterion names one weighted evaluation dimension.
type Criterion string

const (
	CriterionPrice      Criterion = "price"
	CriterionSchedule   Criterion = "schedule"
	CriterionExperience Criterion = "experience"
	CriterionQuality    Criterion = "quality"
	CriterionSafety     Criterion = "safety"
)

// AmountScale is the number of decimal places money columns keep.
const AmountScale = 2

// FitsAmountScale reports whether d can be stored without rounding.
func FitsAmountScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(AmountScale))
}

// CriteriaWeightSet maps criterion names to percentage weights (0-100).
type CriteriaWeightSet map[Criterion]float64

type ComplianceState string

const (
	ComplianceUnderReview         ComplianceState = "under_review"
	ComplianceClarificationNeeded ComplianceState = "clarification_needed"
	ComplianceCompliant           ComplianceState = "compliant"
	ComplianceRejected            ComplianceState = "rejected"
)

type Package struct {
	ID             uuid.UUID         `json:"id"`
	Title          string            `json:"title"`
	TradeCategory  string            `json:"trade_category"`
	Status         PackageStatus     `json:"status"`
	EstimatedValue decimal.Decimal   `json:"estimated_value"`
	DueDate        time.Time         `json:"due_date"`
	Weights        CriteriaWeightSet `json:"weights"`

	// Award
	RecommendedBidID   *uuid.UUID `json:"recommended_bid_id,omitempty"`
	AwardedBidID       *uuid.UUID `json:"awarded_bid_id,omitempty"`
	AcceptedAlternates []string   `json:"accepted_alternates,omitempty"`

	Version   int       `json:"version"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PackageFilter struct {
	Status        *PackageStatus
	TradeCategory string
	Limit         int
	Offset        int
}

// ComplianceSignals are the raw document and clarification flags for a bid.
type ComplianceSignals struct {
	BondRequired       bool     `json:"bond_required"`
	BondProvided       bool     `json:"bond_provided"`
	MissingDocuments   []string `json:"missing_documents,omitempty"`
	OpenClarifications int      `json:"open_clarifications"`
	Reviewed           bool     `json:"reviewed"`
}

// Alternate is a priced option on a bid. It never takes part in base ranking.
type Alternate struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	CostDelta   decimal.Decimal `json:"cost_delta"`
}

type Milestone struct {
	Name  string    `json:"name"`
	DueOn time.Time `json:"due_on"`
}

type Schedule struct {
	StartDate    time.Time   `json:"start_date"`
	DurationDays int         `json:"duration_days"`
	Milestones   []Milestone `json:"milestones,omitempty"`
}

type Bid struct {
	ID          uuid.UUID       `json:"id"`
	PackageID   uuid.UUID       `json:"package_id"`
	VendorID    string          `json:"vendor_id"`
	VendorName  string          `json:"vendor_name"`
	Amount      decimal.Decimal `json:"amount"`
	SubmittedAt time.Time       `json:"submitted_at"`

	Compliance      ComplianceSignals `json:"compliance"`
	ComplianceState ComplianceState   `json:"compliance_state"`

	RawScores    map[Criterion]float64 `json:"raw_scores"`
	VendorRating float64               `json:"vendor_rating"`
	Alternates   []Alternate           `json:"alternates,omitempty"`
	Schedule     Schedule              `json:"schedule"`

	// Corrections
	SupersedesID *uuid.UUID `json:"supersedes_id,omitempty"`
	SupersededBy *uuid.UUID `json:"superseded_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// EvaluationRecord is one immutable entry in a package's evaluation history.
type EvaluationRecord struct {
	ID               uuid.UUID       `json:"id"`
	PackageID        uuid.UUID       `json:"package_id"`
	Version          int             `json:"version"`
	SnapshotDigest   string          `json:"snapshot_digest"`
	RecommendedBidID *uuid.UUID      `json:"recommended_bid_id,omitempty"`
	Result           json.RawMessage `json:"result"`
	CreatedBy        string          `json:"created_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ChangeOrder adjusts the contract value of an awarded package.
type ChangeOrder struct {
	ID          uuid.UUID       `json:"id"`
	PackageID   uuid.UUID       `json:"package_id"`
	Description string          `json:"description"`
	CostDelta   decimal.Decimal `json:"cost_delta"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

type PackageEvent struct {
	ID        uuid.UUID              `json:"id"`
	PackageID uuid.UUID              `json:"package_id"`
	Event     string                 `json:"event"`
	Actor     string                 `json:"actor,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type Stats struct {
	TotalBidding    int `json:"total_bidding"`
	TotalEvaluation int `json:"total_evaluation"`
	TotalAwarded    int `json:"total_awarded"`
	TotalCancelled  int `json:"total_cancelled"`
	TotalBids       int `json:"total_bids"`
	TotalEvaluated  int `json:"total_evaluations"`
}

// AwardSelection is the winning bid and the alternates accepted with it.
type AwardSelection struct {
	BidID              uuid.UUID
	AcceptedAlternates []string
}

// AwardFunc picks the winner from a package, its latest evaluation (nil if
// none) and its active bids.
type AwardFunc func(pkg *Package, latest *EvaluationRecord, bids []*Bid) (*AwardSelection, error)

// eligible reports whether sel names an active compliant bid in bids.
func eligible(sel *AwardSelection, bids []*Bid) bool {
	for _, b := range bids {
		if b.ID == sel.BidID {
			return b.SupersededBy == nil && b.ComplianceState == ComplianceCompliant
		}
	}
	return false
}

type Store interface {
	CreatePackage(ctx context.Context, p *Package) error
	GetPackage(ctx context.Context, id uuid.UUID) (*Package, error)
	ListPackages(ctx context.Context, filter PackageFilter) ([]*Package, error)
	// TransitionPackage moves a package from one status to another if its
	// status and version still match. Returns ErrConflict otherwise, or
	// ErrNotFound.
	TransitionPackage(ctx context.Context, id uuid.UUID, from, to PackageStatus, version int) (*Package, error)

	// CreateBid appends a bid. Returns ErrNotBidding unless the package is bidding.
	// Lookups return nil, nil for missing records; mutations return ErrNotFound.
	CreateBid(ctx context.Context, b *Bid) error
	GetBid(ctx context.Context, id uuid.UUID) (*Bid, error)
	// ListBids returns the active (not superseded) bids of a package in
	// submission order.
	ListBids(ctx context.Context, packageID uuid.UUID) ([]*Bid, error)
	SupersedeBid(ctx context.Context, oldID uuid.UUID, replacement *Bid) error
	UpdateBidCompliance(ctx context.Context, id uuid.UUID, signals ComplianceSignals, state ComplianceState) error

	// SaveEvaluation appends to the history. When the latest record has the
	// same snapshot digest, rec is filled from it and nothing is written.
	SaveEvaluation(ctx context.Context, rec *EvaluationRecord) error
	GetLatestEvaluation(ctx context.Context, packageID uuid.UUID) (*EvaluationRecord, error)
	ListEvaluations(ctx context.Context, packageID uuid.UUID) ([]*EvaluationRecord, error)

	// AwardPackage locks the package, checks status and version, and hands the
	// locked state to choose. Compliance updates and evaluations cannot land
	// between choose and the write. The chosen bid must be active and
	// compliant or ErrNotEligible is returned. choose must not call back into
	// the store.
	AwardPackage(ctx context.Context, id uuid.UUID, version int, choose AwardFunc) (*Package, error)

	CreateChangeOrder(ctx context.Context, co *ChangeOrder) error
	ListChangeOrders(ctx context.Context, packageID uuid.UUID) ([]*ChangeOrder, error)

	CreatePackageEvent(ctx context.Context, e *PackageEvent) error
	GetPackageEvents(ctx context.Context, packageID uuid.UUID) ([]*PackageEvent, error)

	GetStats(ctx context.Context) (*Stats, error)

	Close() error
}
