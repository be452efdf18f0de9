package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceType(t *testing.T) {
	got, err := ParseResourceType(" Bucket ")
	require.NoError(t, err)
	assert.Equal(t, ResourceTypeBucket, got)

	_, err = ParseResourceType("queue")
	assert.ErrorIs(t, err, ErrUnsupportedResourceType)
}

func TestNewScanSummary(t *testing.T) {
	tests := []struct {
		name         string
		compliant    int
		nonCompliant int
		want         ScanSummary
	}{
		{"empty", 0, 0, ScanSummary{ComplianceScore: 100}},
		{"all compliant", 3, 0, ScanSummary{TotalResources: 3, Compliant: 3, ComplianceScore: 100}},
		{"half", 1, 1, ScanSummary{TotalResources: 2, Compliant: 1, NonCompliant: 1, ComplianceScore: 50}},
		{"none compliant", 0, 4, ScanSummary{TotalResources: 4, NonCompliant: 4, ComplianceScore: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewScanSummary(tt.compliant, tt.nonCompliant))
		})
	}
}

func TestTypeTotals_Count(t *testing.T) {
	var totals TypeTotals
	for _, v := range []Verdict{VerdictCompliant, VerdictNonCompliant, VerdictInsufficientData, VerdictNotApplicable} {
		totals.Count(v)
	}
	assert.Equal(t, TypeTotals{Total: 2, Compliant: 1, NonCompliant: 1, InsufficientData: 1, NotApplicable: 1}, totals)
}

func TestEvaluation_Result(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := Evaluation{
		ResourceID:   "fn-a",
		ResourceType: ResourceTypeFunction,
		Verdict:      VerdictNonCompliant,
		Issues:       []IssueRecord{{Category: "missing-required-tags"}},
		EvaluatedAt:  now,
	}

	r, ok := ev.Result()
	require.True(t, ok)
	assert.False(t, r.Compliant)
	assert.Equal(t, now, r.EvaluationTimestamp)
	assert.Equal(t, []string{"missing-required-tags"}, r.Details["violations"])

	ev.Verdict = VerdictInsufficientData
	_, ok = ev.Result()
	assert.False(t, ok)
}

func TestParseLookback(t *testing.T) {
	d, err := ParseLookback("24h")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d)

	d, err = ParseLookback("7d")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	for _, bad := range []string{"", "0d", "-1h", "week"} {
		_, err := ParseLookback(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimePeriod_Contains(t *testing.T) {
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	p := LastPeriod(end, 24*time.Hour)

	assert.True(t, p.Contains(p.Start))
	assert.True(t, p.Contains(end.Add(-time.Second)))
	assert.False(t, p.Contains(end))
}

func TestDescriptor_DecodedFromJSON(t *testing.T) {
	raw := `{
		"resource_type": "instance",
		"resource_id": "i-1",
		"attributes": {
			"tags": {"Owner": "team"},
			"volumes": [{"id": "vol-1", "encrypted": false}],
			"security_groups": [{"id": "sg-1", "egress": [{"protocol": "-1", "cidrs": ["0.0.0.0/0"]}]}],
			"memory_mb": 512
		}
	}`
	var d ResourceDescriptor
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	tags, err := d.StringMap(AttrTags)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Owner": "team"}, tags)

	volumes, err := d.Volumes()
	require.NoError(t, err)
	assert.Equal(t, []Volume{{ID: "vol-1"}}, volumes)

	groups, err := d.SecurityGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"0.0.0.0/0"}, groups[0].Egress[0].CIDRs)

	memory, err := d.Int(AttrMemoryMB)
	require.NoError(t, err)
	assert.Equal(t, 512, memory)

	_, err = d.Bool(AttrEncrypted)
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestDescriptor_Unresolved(t *testing.T) {
	d := NewResourceDescriptor(ResourceTypeInstance, "i-1", map[string]any{
		AttrTags:       map[string]string{},
		AttrUnresolved: []string{AttrSecurityGroups, AttrVolumes},
	})
	_, err := d.SecurityGroups()
	assert.ErrorIs(t, err, ErrMissingAttribute)
	_, err = d.Volumes()
	assert.ErrorIs(t, err, ErrMissingAttribute)
	_, err = d.StringMap(AttrTags)
	assert.NoError(t, err)

	var decoded ResourceDescriptor
	require.NoError(t, json.Unmarshal([]byte(`{
		"resource_type": "bucket",
		"resource_id": "locked",
		"attributes": {"unresolved_attributes": ["encrypted"]}
	}`), &decoded))
	assert.True(t, decoded.Unresolved(AttrEncrypted))
	_, err = decoded.Bool(AttrEncrypted)
	assert.ErrorIs(t, err, ErrMissingAttribute)

	groups, err := NewResourceDescriptor(ResourceTypeFunction, "fn", nil).SecurityGroups()
	require.NoError(t, err)
	assert.Nil(t, groups)
}
