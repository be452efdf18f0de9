package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/aggregator"
)

var ErrNoHistory = errors.New("no history store configured")

// HistorySummary is a Scan Summary recomputed from stored results.
type HistorySummary struct {
	Period  domain.TimePeriod
	Summary domain.ScanSummary
	ByType  map[domain.ResourceType]domain.TypeTotals
}

func (o *Orchestrator) Summarize(ctx context.Context, period domain.TimePeriod) (*HistorySummary, error) {
	if o.cfg.History == nil {
		return nil, ErrNoHistory
	}
	results, err := o.cfg.History.Query(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	agg := aggregator.New(nil)
	for _, r := range results {
		agg.AddResult(r)
	}
	return &HistorySummary{
		Period:  period,
		Summary: agg.Summary(),
		ByType:  agg.ByType(),
	}, nil
}
