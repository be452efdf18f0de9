package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/aggregator"
)

type Meta struct {
	ScanID    string
	Region    string
	Timestamp time.Time
}

// Build snapshots the aggregator into a report document.
func Build(agg *aggregator.Aggregator, meta Meta) *domain.Report {
	counts := agg.IssueCounts()
	return &domain.Report{
		AnalysisTimestamp: meta.Timestamp.UTC(),
		Region:            meta.Region,
		ScanID:            meta.ScanID,
		Issues:            agg.Issues(),
		Summary: domain.ReportSummary{
			TotalIssues:  agg.TotalIssues(),
			IssuesByType: counts,
		},
		ResourceSummary: agg.Summary(),
		ResourcesByType: agg.ByType(),
		Categories:      agg.Categories(),
	}
}

// JSON renders the structured form. Map keys are emitted sorted so the output
// is deterministic for a given report.
func JSON(r *domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return buf.Bytes(), nil
}
