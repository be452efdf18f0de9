package export

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// HistoryView is a summary recomputed from the history store, optionally
// with the most recent scan runs.
type HistoryView struct {
	Period  domain.TimePeriod                         `json:"period"`
	Summary domain.ScanSummary                        `json:"summary"`
	ByType  map[domain.ResourceType]domain.TypeTotals `json:"by_type"`
	Runs    []domain.ScanRun                          `json:"runs,omitempty"`
}

const historyTemplate = `Compliance history
Period: {{.Period.Start.Format "2006-01-02 15:04"}} to {{.Period.End.Format "2006-01-02 15:04"}} UTC
Resources: {{.Summary.TotalResources}} | Compliant: {{.Summary.Compliant}} | Non-compliant: {{.Summary.NonCompliant}} | Score: {{printf "%.1f" .Summary.ComplianceScore}}%
{{- if .ByType}}

=== By resource type ===
{{- range $type, $totals := .ByType}}
{{$type}}: {{$totals.Compliant}}/{{$totals.Total}} compliant
{{- end}}
{{- end}}
{{- if .Runs}}

=== Recent scans ===
{{- range .Runs}}
- {{.ID}} {{.StartedAt.Format "2006-01-02 15:04"}}{{if .Region}} {{.Region}}{{end}}: {{.TotalIssues}} issues, score {{printf "%.1f" .Summary.ComplianceScore}}%{{if .Cancelled}} (cancelled){{end}}
{{- end}}
{{- end}}
`

var historyTmpl = template.Must(template.New("history").Parse(historyTemplate))

// HistoryReporter outputs history summaries in a formatted text form
type HistoryReporter struct {
	writer io.Writer
}

func NewHistoryReporter(writer io.Writer) *HistoryReporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &HistoryReporter{writer: writer}
}

func (h *HistoryReporter) Handle(view HistoryView) error {
	view.Period = domain.TimePeriod{Start: view.Period.Start.UTC(), End: view.Period.End.UTC()}
	if err := historyTmpl.Execute(h.writer, view); err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}
	return nil
}
