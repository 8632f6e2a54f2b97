package hermes

import "time"

type PackageCreatedEvent struct {
	PackageID      string `json:"package_id"`
	Title          string `json:"title"`
	TradeCategory  string `json:"trade_category,omitempty"`
	EstimatedValue string `json:"estimated_value"`
	CreatedBy      string `json:"created_by,omitempty"`
}

type PackageTransitionedEvent struct {
	PackageID string `json:"package_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Version   int    `json:"version"`
	Actor     string `json:"actor,omitempty"`
}

type PackageEvaluatedEvent struct {
	PackageID        string `json:"package_id"`
	EvaluationID     string `json:"evaluation_id"`
	Version          int    `json:"version"`
	SnapshotDigest   string `json:"snapshot_digest"`
	RecommendedBidID string `json:"recommended_bid_id,omitempty"`
	Reason           string `json:"reason"`
	Ranked           int    `json:"ranked"`
	Excluded         int    `json:"excluded"`
}

type PackageAwardedEvent struct {
	PackageID          string   `json:"package_id"`
	BidID              string   `json:"bid_id"`
	VendorID           string   `json:"vendor_id"`
	AcceptedAlternates []string `json:"accepted_alternates,omitempty"`
	ContractValue      string   `json:"contract_value"`
	Actor              string   `json:"actor,omitempty"`
}

type BidSubmittedEvent struct {
	BidID        string `json:"bid_id"`
	PackageID    string `json:"package_id"`
	VendorID     string `json:"vendor_id"`
	Amount       string `json:"amount"`
	SupersedesID string `json:"supersedes_id,omitempty"`
}

type BidComplianceEvent struct {
	BidID     string `json:"bid_id"`
	PackageID string `json:"package_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason"`
}

// ComplianceReportedEvent is published by document review tooling when a
// bid's compliance checks have run.
type ComplianceReportedEvent struct {
	BidID              string   `json:"bid_id"`
	BondRequired       bool     `json:"bond_required"`
	BondProvided       bool     `json:"bond_provided"`
	MissingDocuments   []string `json:"missing_documents,omitempty"`
	OpenClarifications int      `json:"open_clarifications"`
	Reviewer           string   `json:"reviewer,omitempty"`
}

type ChangeOrderEvent struct {
	ChangeOrderID string `json:"change_order_id"`
	PackageID     string `json:"package_id"`
	CostDelta     string `json:"cost_delta"`
	ContractValue string `json:"contract_value"`
}

type StatsEvent struct {
	Bidding     int       `json:"bidding"`
	Evaluation  int       `json:"evaluation"`
	Awarded     int       `json:"awarded"`
	Cancelled   int       `json:"cancelled"`
	Bids        int       `json:"bids"`
	Evaluations int       `json:"evaluations"`
	Timestamp   time.Time `json:"timestamp"`
}
