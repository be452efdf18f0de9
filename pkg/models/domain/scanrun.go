package domain

import "time"

// ScanRun records the outcome of one batch scan.
type ScanRun struct {
	ID          string      `json:"id"`
	Region      string      `json:"region,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	Summary     ScanSummary `json:"summary"`
	TotalIssues int         `json:"total_issues"`
	Cancelled   bool        `json:"cancelled,omitempty"`
}
