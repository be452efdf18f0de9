package export

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

type Options struct {
	NoColor bool
}

// Reporter renders a compliance report as one table per issue category.
type Reporter struct {
	writer  io.Writer
	title   *color.Color
	clean   *color.Color
	summary *color.Color
}

func NewReporter(writer io.Writer, opts Options) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	r := &Reporter{
		writer:  writer,
		title:   color.New(color.FgYellow, color.Bold),
		clean:   color.New(color.FgGreen),
		summary: color.New(color.Bold),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{r.title, r.clean, r.summary} {
			c.DisableColor()
		}
	}
	return r
}

func (r *Reporter) Handle(report *domain.Report) error {
	if len(report.Issues) == 0 {
		_, err := r.clean.Fprintln(r.writer, "No issues found")
		return err
	}

	categories := report.Categories
	if len(categories) == 0 {
		for c := range report.Issues {
			categories = append(categories, c)
		}
		slices.Sort(categories)
	}

	for _, category := range categories {
		records := report.Issues[category]
		if len(records) == 0 {
			continue
		}
		if _, err := r.title.Fprintf(r.writer, "\n%s (%d)\n", category, len(records)); err != nil {
			return err
		}
		r.table(records)
	}

	s := report.ResourceSummary
	_, err := r.summary.Fprintf(r.writer, "\nTotal issues: %d | Resources: %d | Compliant: %d | Non-compliant: %d | Score: %.1f%%\n",
		report.Summary.TotalIssues, s.TotalResources, s.Compliant, s.NonCompliant, s.ComplianceScore)
	return err
}

func (r *Reporter) table(records []domain.IssueRecord) {
	keys := detailKeys(records)

	header := []string{"RESOURCE ID", "RESOURCE TYPE"}
	for _, k := range keys {
		header = append(header, strings.ToUpper(strings.ReplaceAll(k, "_", " ")))
	}

	table := tablewriter.NewWriter(r.writer)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, rec := range records {
		row := []string{rec.ResourceID, rec.ResourceType.String()}
		for _, k := range keys {
			row = append(row, formatValue(rec.Detail[k]))
		}
		table.Append(row)
	}
	table.Render()
}

func detailKeys(records []domain.IssueRecord) []string {
	var keys []string
	for _, rec := range records {
		for k := range rec.Detail {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return keys
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
