package aggregator

import (
	"fmt"
	"slices"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// Aggregator folds evaluations into category buckets and per-type totals.
// An Aggregator is not safe for concurrent use; give each worker its own and
// Merge them when the workers finish.
type Aggregator struct {
	categories []string
	issues     map[string][]domain.IssueRecord
	byType     map[domain.ResourceType]*domain.TypeTotals
	results    []domain.EvaluationResult
	keepResult bool
}

type Option func(*Aggregator)

// WithResults keeps the decisive evaluation results so they can be persisted.
func WithResults() Option {
	return func(a *Aggregator) {
		a.keepResult = true
	}
}

// New pre-sizes one bucket per declared category.
func New(categories []string, opts ...Option) *Aggregator {
	a := &Aggregator{
		categories: slices.Clone(categories),
		issues:     make(map[string][]domain.IssueRecord, len(categories)),
		byType:     make(map[domain.ResourceType]*domain.TypeTotals, len(domain.ResourceTypes)),
	}
	for _, c := range categories {
		a.issues[c] = []domain.IssueRecord{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fork returns an empty aggregator with the same categories and options.
func (a *Aggregator) Fork() *Aggregator {
	f := New(a.categories)
	f.keepResult = a.keepResult
	return f
}

// Add folds one evaluation. Issues in undeclared categories are rejected and
// leave the aggregator unchanged.
func (a *Aggregator) Add(ev domain.Evaluation) error {
	for _, issue := range ev.Issues {
		if _, ok := a.issues[issue.Category]; !ok {
			return fmt.Errorf("issue category %q is not declared in the rule catalog", issue.Category)
		}
	}
	for _, issue := range ev.Issues {
		a.issues[issue.Category] = append(a.issues[issue.Category], issue)
	}
	a.totals(ev.ResourceType).Count(ev.Verdict)

	if a.keepResult {
		if result, ok := ev.Result(); ok {
			a.results = append(a.results, result)
		}
	}
	return nil
}

// AddResult folds a stored evaluation result.
func (a *Aggregator) AddResult(r domain.EvaluationResult) {
	v := domain.VerdictNonCompliant
	if r.Compliant {
		v = domain.VerdictCompliant
	}
	a.totals(r.ResourceType).Count(v)
	if a.keepResult {
		a.results = append(a.results, r)
	}
}

func (a *Aggregator) totals(t domain.ResourceType) *domain.TypeTotals {
	totals, ok := a.byType[t]
	if !ok {
		totals = &domain.TypeTotals{}
		a.byType[t] = totals
	}
	return totals
}

// Merge appends the state of other after the state of a.
func (a *Aggregator) Merge(other *Aggregator) {
	if other == nil {
		return
	}
	for _, c := range other.categories {
		if _, ok := a.issues[c]; !ok {
			a.categories = append(a.categories, c)
			a.issues[c] = []domain.IssueRecord{}
		}
		a.issues[c] = append(a.issues[c], other.issues[c]...)
	}
	for t, totals := range other.byType {
		a.totals(t).Add(*totals)
	}
	a.results = append(a.results, other.results...)
}

// Issues returns the non-empty categories and their records in detection order.
func (a *Aggregator) Issues() map[string][]domain.IssueRecord {
	out := make(map[string][]domain.IssueRecord)
	for c, records := range a.issues {
		if len(records) > 0 {
			out[c] = slices.Clone(records)
		}
	}
	return out
}

// Categories returns the non-empty categories in catalog order.
func (a *Aggregator) Categories() []string {
	var out []string
	for _, c := range a.categories {
		if len(a.issues[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func (a *Aggregator) IssueCounts() map[string]int {
	out := make(map[string]int)
	for c, records := range a.issues {
		if len(records) > 0 {
			out[c] = len(records)
		}
	}
	return out
}

func (a *Aggregator) TotalIssues() int {
	total := 0
	for _, records := range a.issues {
		total += len(records)
	}
	return total
}

func (a *Aggregator) ByType() map[domain.ResourceType]domain.TypeTotals {
	out := make(map[domain.ResourceType]domain.TypeTotals, len(a.byType))
	for t, totals := range a.byType {
		out[t] = *totals
	}
	return out
}

func (a *Aggregator) Summary() domain.ScanSummary {
	var compliant, nonCompliant int
	for _, totals := range a.byType {
		compliant += totals.Compliant
		nonCompliant += totals.NonCompliant
	}
	return domain.NewScanSummary(compliant, nonCompliant)
}

// Results returns the decisive results collected with WithResults.
func (a *Aggregator) Results() []domain.EvaluationResult {
	return slices.Clone(a.results)
}
