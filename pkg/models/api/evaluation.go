package api

import "time"

type Descriptor struct {
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Attributes   map[string]any `json:"attributes"`
}

type Issue struct {
	Category   string         `json:"category"`
	Severity   string         `json:"severity,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	DetectedAt time.Time      `json:"detected_at"`
}

type EvaluationResponse struct {
	ResourceID   string  `json:"resource_id"`
	ResourceType string  `json:"resource_type"`
	Verdict      string  `json:"verdict"`
	Issues       []Issue `json:"issues"`
	FailedRule   string  `json:"failed_rule,omitempty"`
	Error        string  `json:"error,omitempty"`
	Persisted    bool    `json:"persisted"`
}

type TimePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Summary struct {
	TotalResources  int     `json:"total_resources"`
	Compliant       int     `json:"compliant"`
	NonCompliant    int     `json:"non_compliant"`
	ComplianceScore float64 `json:"compliance_score"`
}

type TypeTotals struct {
	Total        int `json:"total"`
	Compliant    int `json:"compliant"`
	NonCompliant int `json:"non_compliant"`
}

type SummaryResponse struct {
	Period  TimePeriod            `json:"period"`
	Summary Summary               `json:"summary"`
	ByType  map[string]TypeTotals `json:"by_type"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
