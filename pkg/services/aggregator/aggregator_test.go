package aggregator

import (
	"testing"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var categories = []string{"over-provisioned", "missing-required-tags", "versioning-disabled"}

func evaluation(t domain.ResourceType, id string, v domain.Verdict, issues ...string) domain.Evaluation {
	ev := domain.Evaluation{ResourceID: id, ResourceType: t, Verdict: v}
	for _, c := range issues {
		ev.Issues = append(ev.Issues, domain.IssueRecord{Category: c, ResourceID: id, ResourceType: t})
	}
	return ev
}

func TestAggregator_Empty(t *testing.T) {
	a := New(categories)

	assert.Empty(t, a.Issues())
	assert.Empty(t, a.Categories())
	assert.Equal(t, 0, a.TotalIssues())
	assert.Equal(t, domain.ScanSummary{ComplianceScore: 100.0}, a.Summary())
}

func TestAggregator_Add(t *testing.T) {
	a := New(categories, WithResults())

	require.NoError(t, a.Add(evaluation(domain.ResourceTypeFunction, "f1", domain.VerdictNonCompliant, "missing-required-tags", "over-provisioned")))
	require.NoError(t, a.Add(evaluation(domain.ResourceTypeFunction, "f2", domain.VerdictCompliant)))
	require.NoError(t, a.Add(evaluation(domain.ResourceTypeFunction, "f3", domain.VerdictNonCompliant, "missing-required-tags")))
	require.NoError(t, a.Add(evaluation(domain.ResourceTypeFunction, "f4", domain.VerdictInsufficientData)))
	require.NoError(t, a.Add(evaluation(domain.ResourceTypeBucket, "b1", domain.VerdictNotApplicable)))

	issues := a.Issues()
	require.Len(t, issues["missing-required-tags"], 2)
	assert.Equal(t, "f1", issues["missing-required-tags"][0].ResourceID)
	assert.Equal(t, "f3", issues["missing-required-tags"][1].ResourceID)
	assert.NotContains(t, issues, "versioning-disabled")

	assert.Equal(t, []string{"over-provisioned", "missing-required-tags"}, a.Categories())
	assert.Equal(t, map[string]int{"over-provisioned": 1, "missing-required-tags": 2}, a.IssueCounts())
	assert.Equal(t, 3, a.TotalIssues())

	assert.Equal(t, domain.TypeTotals{Total: 3, Compliant: 1, NonCompliant: 2, InsufficientData: 1}, a.ByType()[domain.ResourceTypeFunction])
	assert.Equal(t, domain.TypeTotals{NotApplicable: 1}, a.ByType()[domain.ResourceTypeBucket])

	summary := a.Summary()
	assert.Equal(t, 3, summary.TotalResources)
	assert.Equal(t, 1, summary.Compliant)
	assert.Equal(t, 2, summary.NonCompliant)
	assert.InDelta(t, 33.333, summary.ComplianceScore, 0.001)

	assert.Len(t, a.Results(), 3)
}

func TestAggregator_RejectsUndeclaredCategory(t *testing.T) {
	a := New(categories)

	err := a.Add(evaluation(domain.ResourceTypeFunction, "f1", domain.VerdictNonCompliant, "over-provisioned", "made-up"))
	assert.Error(t, err)
	assert.Equal(t, 0, a.TotalIssues())
	assert.Empty(t, a.ByType())
}

func TestAggregator_Merge(t *testing.T) {
	root := New(categories)
	functions := root.Fork()
	buckets := root.Fork()

	require.NoError(t, buckets.Add(evaluation(domain.ResourceTypeBucket, "b1", domain.VerdictNonCompliant, "versioning-disabled", "missing-required-tags")))
	require.NoError(t, functions.Add(evaluation(domain.ResourceTypeFunction, "f1", domain.VerdictNonCompliant, "missing-required-tags")))
	require.NoError(t, functions.Add(evaluation(domain.ResourceTypeFunction, "f2", domain.VerdictCompliant)))

	root.Merge(functions)
	root.Merge(buckets)
	root.Merge(nil)

	issues := root.Issues()
	assert.Equal(t, "f1", issues["missing-required-tags"][0].ResourceID)
	assert.Equal(t, "b1", issues["missing-required-tags"][1].ResourceID)
	assert.Equal(t, 3, root.TotalIssues())
	assert.Equal(t, domain.ScanSummary{TotalResources: 3, Compliant: 1, NonCompliant: 2, ComplianceScore: float64(1) / 3 * 100}, root.Summary())
}

func TestAggregator_AddResult(t *testing.T) {
	a := New(nil)
	a.AddResult(domain.EvaluationResult{ResourceID: "a", ResourceType: domain.ResourceTypeDatabase, Compliant: true})
	a.AddResult(domain.EvaluationResult{ResourceID: "b", ResourceType: domain.ResourceTypeDatabase})

	assert.Equal(t, domain.NewScanSummary(1, 1), a.Summary())
	assert.Equal(t, 50.0, a.Summary().ComplianceScore)
}
