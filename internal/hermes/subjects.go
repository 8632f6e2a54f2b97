package hermes

const (
	SubjectComplianceReported = "tender.compliance.reported"
	SubjectStats              = "tender.stats"

	StreamName     = "TENDER_EVENTS"
	StreamSubjects = "tender.>"
	StreamMaxAge   = "2160h" // 90 days
)

// Package lifecycle subjects

func SubjectPackageCreated(packageID string) string {
	return "tender.package." + packageID + ".created"
}

func SubjectPackageTransitioned(packageID string) string {
	return "tender.package." + packageID + ".transitioned"
}

func SubjectPackageEvaluated(packageID string) string {
	return "tender.package." + packageID + ".evaluated"
}

func SubjectPackageAwarded(packageID string) string {
	return "tender.package." + packageID + ".awarded"
}

// Bid subjects

func SubjectBidSubmitted(bidID string) string {
	return "tender.bid." + bidID + ".submitted"
}

func SubjectBidSuperseded(bidID string) string {
	return "tender.bid." + bidID + ".superseded"
}

func SubjectBidCompliance(bidID string) string {
	return "tender.bid." + bidID + ".compliance"
}

// SubjectChangeOrder is published for every change order on an awarded package.
func SubjectChangeOrder(packageID string) string {
	return "tender.contract." + packageID + ".change_order"
}
