package domain

// ScanSummary is derived from evaluation results and never persisted directly.
type ScanSummary struct {
	TotalResources  int     `json:"total_resources"`
	Compliant       int     `json:"compliant"`
	NonCompliant    int     `json:"non_compliant"`
	ComplianceScore float64 `json:"compliance_score"`
}

// NewScanSummary computes the score as compliant/total*100; an empty scan
// scores 100 by convention.
func NewScanSummary(compliant, nonCompliant int) ScanSummary {
	total := compliant + nonCompliant
	score := 100.0
	if total > 0 {
		score = float64(compliant) / float64(total) * 100
	}
	return ScanSummary{
		TotalResources:  total,
		Compliant:       compliant,
		NonCompliant:    nonCompliant,
		ComplianceScore: score,
	}
}

func SummarizeResults(results []EvaluationResult) ScanSummary {
	var compliant, nonCompliant int
	for _, r := range results {
		if r.Compliant {
			compliant++
		} else {
			nonCompliant++
		}
	}
	return NewScanSummary(compliant, nonCompliant)
}

// TypeTotals are the per-resource-type counters of a scan. Total only covers
// decisive verdicts, matching ScanSummary.
type TypeTotals struct {
	Total            int `json:"total"`
	Compliant        int `json:"compliant"`
	NonCompliant     int `json:"non_compliant"`
	InsufficientData int `json:"insufficient_data,omitempty"`
	NotApplicable    int `json:"not_applicable,omitempty"`
}

func (t *TypeTotals) Count(v Verdict) {
	switch v {
	case VerdictCompliant:
		t.Total++
		t.Compliant++
	case VerdictNonCompliant:
		t.Total++
		t.NonCompliant++
	case VerdictInsufficientData:
		t.InsufficientData++
	case VerdictNotApplicable:
		t.NotApplicable++
	}
}

func (t *TypeTotals) Add(other TypeTotals) {
	t.Total += other.Total
	t.Compliant += other.Compliant
	t.NonCompliant += other.NonCompliant
	t.InsufficientData += other.InsufficientData
	t.NotApplicable += other.NotApplicable
}
