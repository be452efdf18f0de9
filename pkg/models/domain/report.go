package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Report is the structured compliance document produced for one scan.
type Report struct {
	AnalysisTimestamp time.Time                   `json:"analysis_timestamp"`
	Region            string                      `json:"region"`
	ScanID            string                      `json:"scan_id,omitempty"`
	Issues            map[string][]IssueRecord    `json:"issues"`
	Summary           ReportSummary               `json:"summary"`
	ResourceSummary   ScanSummary                 `json:"resource_summary"`
	ResourcesByType   map[ResourceType]TypeTotals `json:"resources_by_type"`
	// Categories lists the keys of Issues in catalog order.
	Categories []string `json:"-"`
}

type ReportSummary struct {
	TotalIssues  int            `json:"total_issues"`
	IssuesByType map[string]int `json:"issues_by_type"`
}

// TimePeriod is a half-open window [Start, End).
type TimePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func LastPeriod(end time.Time, d time.Duration) TimePeriod {
	return TimePeriod{Start: end.Add(-d), End: end}
}

func (p TimePeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// ParseLookback accepts a Go duration ("24h", "90m") or a day count ("7d").
func ParseLookback(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid lookback %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid lookback %q", s)
	}
	return d, nil
}
