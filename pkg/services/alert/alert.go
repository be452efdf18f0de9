package alert

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

// Transport publishes one notification.
type Transport interface {
	Publish(ctx context.Context, subject, body string) error
}

// Alert carries what a scan knows at dispatch time.
type Alert struct {
	ScanID         string
	Region         string
	Summary        domain.ScanSummary
	ByType         map[domain.ResourceType]domain.TypeTotals
	CategoryCounts map[string]int
}

type Dispatcher struct {
	transport Transport
}

func NewDispatcher(transport Transport) *Dispatcher {
	return &Dispatcher{transport: transport}
}

// Dispatch publishes an alert when the scan found non-compliant resources.
// It reports whether a message was sent. Failures are not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, a Alert) (bool, error) {
	if d == nil || d.transport == nil || a.Summary.NonCompliant == 0 {
		return false, nil
	}

	subject := fmt.Sprintf("Compliance alert: %d non-compliant resources", a.Summary.NonCompliant)
	if a.Region != "" {
		subject += " in " + a.Region
	}

	if err := d.transport.Publish(ctx, subject, Body(a)); err != nil {
		return false, fmt.Errorf("publish alert: %w", err)
	}
	zerolog.Ctx(ctx).Info().
		Str("scan_id", a.ScanID).
		Int("non_compliant", a.Summary.NonCompliant).
		Msg("compliance alert dispatched")
	return true, nil
}

// Body renders the alert message.
func Body(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Non-compliant resources: %d of %d (compliance score %.1f%%)\n",
		a.Summary.NonCompliant, a.Summary.TotalResources, a.Summary.ComplianceScore)
	if a.ScanID != "" {
		fmt.Fprintf(&b, "Scan: %s\n", a.ScanID)
	}

	b.WriteString("\nBy resource type:\n")
	for _, t := range domain.ResourceTypes {
		totals, ok := a.ByType[t]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %s: %d non-compliant of %d\n", t, totals.NonCompliant, totals.Total)
	}

	if len(a.CategoryCounts) > 0 {
		b.WriteString("\nBy category:\n")
		categories := make([]string, 0, len(a.CategoryCounts))
		for c := range a.CategoryCounts {
			categories = append(categories, c)
		}
		slices.Sort(categories)
		for _, c := range categories {
			fmt.Fprintf(&b, "  %s: %d\n", c, a.CategoryCounts[c])
		}
	}
	return b.String()
}
