package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Tender/internal/store"
)

// packageFile is the YAML layout read by evaluate and weights check. Amounts
// are strings so they keep their exact decimal value.
type packageFile struct {
	Package       packageEntry `yaml:"package"`
	Bids          []bidEntry   `yaml:"bids"`
	ExtraCriteria []string     `yaml:"extra_criteria,omitempty"`
}

type packageEntry struct {
	ID             string             `yaml:"id,omitempty"`
	Title          string             `yaml:"title"`
	TradeCategory  string             `yaml:"trade_category"`
	EstimatedValue string             `yaml:"estimated_value"`
	Status         string             `yaml:"status,omitempty"`
	Weights        map[string]float64 `yaml:"weights"`
}

type bidEntry struct {
	ID           string             `yaml:"id,omitempty"`
	VendorID     string             `yaml:"vendor_id"`
	VendorName   string             `yaml:"vendor_name"`
	Amount       string             `yaml:"amount"`
	SubmittedAt  time.Time          `yaml:"submitted_at"`
	VendorRating float64            `yaml:"vendor_rating"`
	Compliance   complianceEntry    `yaml:"compliance"`
	RawScores    map[string]float64 `yaml:"raw_scores"`
	Alternates   []alternateEntry   `yaml:"alternates,omitempty"`
}

type complianceEntry struct {
	Reviewed           bool     `yaml:"reviewed"`
	BondRequired       bool     `yaml:"bond_required"`
	BondProvided       bool     `yaml:"bond_provided"`
	MissingDocuments   []string `yaml:"missing_documents,omitempty"`
	OpenClarifications int      `yaml:"open_clarifications"`
}

func (c complianceEntry) signals() store.ComplianceSignals {
	return store.ComplianceSignals{
		Reviewed:           c.Reviewed,
		BondRequired:       c.BondRequired,
		BondProvided:       c.BondProvided,
		MissingDocuments:   c.MissingDocuments,
		OpenClarifications: c.OpenClarifications,
	}
}

type alternateEntry struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
	CostDelta   string `yaml:"cost_delta"`
}

func loadPackageFile(path string) (*packageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read package file: %w", err)
	}
	var pf packageFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse package file: %w", err)
	}
	return &pf, nil
}

func (pf *packageFile) weights() store.CriteriaWeightSet {
	w := make(store.CriteriaWeightSet, len(pf.Package.Weights))
	for c, v := range pf.Package.Weights {
		w[store.Criterion(c)] = v
	}
	return w
}

// fileID parses id, or derives a stable one from name so repeated runs over
// the same file produce the same output.
func fileID(id, name string) (uuid.UUID, error) {
	if id == "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte("tenderctl:"+name)), nil
	}
	return uuid.Parse(id)
}

// snapshot converts the file into the records the engine evaluates.
func (pf *packageFile) snapshot() (*store.Package, []*store.Bid, error) {
	ps := pf.Package
	pkgID, err := fileID(ps.ID, ps.Title)
	if err != nil {
		return nil, nil, fmt.Errorf("package id: %w", err)
	}
	value, err := decimal.NewFromString(ps.EstimatedValue)
	if err != nil {
		return nil, nil, fmt.Errorf("package estimated_value %q: %w", ps.EstimatedValue, err)
	}
	status := store.PackageEvaluation
	if ps.Status != "" {
		status = store.PackageStatus(ps.Status)
	}
	pkg := &store.Package{
		ID:             pkgID,
		Title:          ps.Title,
		TradeCategory:  ps.TradeCategory,
		Status:         status,
		EstimatedValue: value,
		Weights:        pf.weights(),
	}

	bids := make([]*store.Bid, 0, len(pf.Bids))
	for i, bs := range pf.Bids {
		b, err := bs.bid(pkgID, i)
		if err != nil {
			return nil, nil, fmt.Errorf("bid %d (%s): %w", i, bs.VendorID, err)
		}
		bids = append(bids, b)
	}
	return pkg, bids, nil
}

func (bs bidEntry) bid(pkgID uuid.UUID, index int) (*store.Bid, error) {
	id, err := fileID(bs.ID, fmt.Sprintf("%s/%d/%s", pkgID, index, bs.VendorID))
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	amount, err := decimal.NewFromString(bs.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", bs.Amount, err)
	}
	raw := make(map[store.Criterion]float64, len(bs.RawScores))
	for c, v := range bs.RawScores {
		raw[store.Criterion(c)] = v
	}
	alts := make([]store.Alternate, 0, len(bs.Alternates))
	for _, a := range bs.Alternates {
		delta, err := decimal.NewFromString(a.CostDelta)
		if err != nil {
			return nil, fmt.Errorf("alternate %s cost_delta %q: %w", a.Code, a.CostDelta, err)
		}
		alts = append(alts, store.Alternate{Code: a.Code, Description: a.Description, CostDelta: delta})
	}
	return &store.Bid{
		ID:           id,
		PackageID:    pkgID,
		VendorID:     bs.VendorID,
		VendorName:   bs.VendorName,
		Amount:       amount,
		SubmittedAt:  bs.SubmittedAt,
		Compliance:   bs.Compliance.signals(),
		RawScores:    raw,
		VendorRating: bs.VendorRating,
		Alternates:   alts,
	}, nil
}
