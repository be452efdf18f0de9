package adapters

import (
	"github.com/de-tools/compliance-atlas/pkg/models/api"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// SeverityLookup resolves the severity of the rule that produced an issue.
type SeverityLookup func(t domain.ResourceType, category string) (domain.Severity, bool)

func MapDescriptorApiToDomain(d api.Descriptor) domain.ResourceDescriptor {
	return domain.NewResourceDescriptor(domain.ResourceType(d.ResourceType), d.ResourceID, d.Attributes)
}

func MapIssueDomainToApi(i domain.IssueRecord, severity SeverityLookup) api.Issue {
	issue := api.Issue{
		Category:   i.Category,
		Detail:     i.Detail,
		DetectedAt: i.DetectedAt,
	}
	if severity != nil {
		if s, ok := severity(i.ResourceType, i.Category); ok {
			issue.Severity = s.String()
		}
	}
	return issue
}

func MapEvaluationDomainToApi(ev domain.Evaluation, severity SeverityLookup) api.EvaluationResponse {
	issues := make([]api.Issue, 0, len(ev.Issues))
	for _, i := range ev.Issues {
		issues = append(issues, MapIssueDomainToApi(i, severity))
	}
	resp := api.EvaluationResponse{
		ResourceID:   ev.ResourceID,
		ResourceType: ev.ResourceType.String(),
		Verdict:      string(ev.Verdict),
		Issues:       issues,
		FailedRule:   ev.FailedRule,
	}
	if ev.Err != nil {
		resp.Error = ev.Err.Error()
	}
	return resp
}

func MapTimePeriodDomainToApi(p domain.TimePeriod) api.TimePeriod {
	return api.TimePeriod{Start: p.Start, End: p.End}
}

func MapSummaryDomainToApi(s domain.ScanSummary) api.Summary {
	return api.Summary{
		TotalResources:  s.TotalResources,
		Compliant:       s.Compliant,
		NonCompliant:    s.NonCompliant,
		ComplianceScore: s.ComplianceScore,
	}
}

func MapTypeTotalsDomainToApi(byType map[domain.ResourceType]domain.TypeTotals) map[string]api.TypeTotals {
	out := make(map[string]api.TypeTotals, len(byType))
	for t, totals := range byType {
		out[t.String()] = api.TypeTotals{
			Total:        totals.Total,
			Compliant:    totals.Compliant,
			NonCompliant: totals.NonCompliant,
		}
	}
	return out
}
