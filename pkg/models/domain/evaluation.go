package domain

import (
	"maps"
	"time"
)

// IssueRecord is evidence that one rule failed for one resource. Category is
// always the name of the rule that produced it.
type IssueRecord struct {
	Category     string         `json:"category"`
	ResourceID   string         `json:"resource_id"`
	ResourceType ResourceType   `json:"resource_type"`
	Detail       map[string]any `json:"detail"`
	DetectedAt   time.Time      `json:"detected_at"`
}

// Evaluation is the outcome of running a rule catalog against one descriptor.
type Evaluation struct {
	ResourceID   string
	ResourceType ResourceType
	Verdict      Verdict
	Issues       []IssueRecord
	// FailedRule names the rule whose evaluation errored, if any.
	FailedRule  string
	Err         error
	EvaluatedAt time.Time
}

// Result converts a decisive evaluation into the record kept in the history store.
func (e Evaluation) Result() (EvaluationResult, bool) {
	if !e.Verdict.Decisive() {
		return EvaluationResult{}, false
	}
	details := map[string]any{}
	if len(e.Issues) > 0 {
		violations := make([]string, 0, len(e.Issues))
		for _, issue := range e.Issues {
			violations = append(violations, issue.Category)
		}
		details["violations"] = violations
	}
	return EvaluationResult{
		ResourceID:          e.ResourceID,
		ResourceType:        e.ResourceType,
		Compliant:           e.Verdict == VerdictCompliant,
		EvaluationTimestamp: e.EvaluatedAt,
		Details:             details,
	}, true
}

// EvaluationResult is the unit written to the history store, keyed by
// (ResourceID, ResourceType).
type EvaluationResult struct {
	ResourceID          string         `json:"resource_id"`
	ResourceType        ResourceType   `json:"resource_type"`
	Compliant           bool           `json:"compliant"`
	EvaluationTimestamp time.Time      `json:"evaluation_timestamp"`
	Details             map[string]any `json:"details,omitempty"`
}

type ResultKey struct {
	ResourceID   string
	ResourceType ResourceType
}

func (r EvaluationResult) Key() ResultKey {
	return ResultKey{ResourceID: r.ResourceID, ResourceType: r.ResourceType}
}

func (r EvaluationResult) Clone() EvaluationResult {
	r.Details = maps.Clone(r.Details)
	return r
}
