package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/compliance-atlas/pkg/services/bootstrap"
	"github.com/de-tools/compliance-atlas/pkg/services/report"
	"github.com/de-tools/compliance-atlas/pkg/services/scan"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type ScanCmd struct {
	env *Env

	all       bool
	functions bool
	buckets   bool
	databases bool
	instances bool

	json      bool
	outputDir string
	bucket    string
	prefix    string
	noPersist bool
	noAlert   bool
	fanOut    int
}

func NewScanCmd(env *Env) *cobra.Command {
	sc := &ScanCmd{env: env}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan cloud resources against the compliance rule catalog",
		Long: `Enumerates the selected resource types, evaluates every resource and prints a report.
Exits 0 when no issues are found, 1 when at least one issue is found and 2 on setup failures.`,
		RunE: sc.run,
	}

	cmd.Flags().BoolVar(&sc.all, "all", false, "Scan every supported resource type")
	cmd.Flags().BoolVar(&sc.functions, "functions", false, "Scan serverless functions")
	cmd.Flags().BoolVar(&sc.buckets, "buckets", false, "Scan object storage buckets")
	cmd.Flags().BoolVar(&sc.databases, "databases", false, "Scan relational database instances")
	cmd.Flags().BoolVar(&sc.instances, "instances", false, "Scan virtual machine instances")

	cmd.Flags().BoolVar(&sc.json, "json", false, "Print the structured report instead of tables")
	cmd.Flags().StringVar(&sc.outputDir, "output-dir", "", "Archive the structured report under this directory")
	cmd.Flags().StringVar(&sc.bucket, "bucket", "", "Archive the structured report to this S3 bucket")
	cmd.Flags().StringVar(&sc.prefix, "prefix", "", "Key prefix for archived reports")
	cmd.Flags().BoolVar(&sc.noPersist, "no-persist", false, "Do not write results to the history store")
	cmd.Flags().BoolVar(&sc.noAlert, "no-alert", false, "Do not dispatch an alert")
	cmd.Flags().IntVar(&sc.fanOut, "fan-out", 0, "Resource types scanned in parallel")

	cmd.MarkFlagsMutuallyExclusive("all", "functions")
	cmd.MarkFlagsMutuallyExclusive("all", "buckets")
	cmd.MarkFlagsMutuallyExclusive("all", "databases")
	cmd.MarkFlagsMutuallyExclusive("all", "instances")

	return cmd
}

func (sc *ScanCmd) selected() ([]domain.ResourceType, error) {
	if sc.all {
		return nil, nil
	}
	var types []domain.ResourceType
	for _, sel := range []struct {
		on bool
		t  domain.ResourceType
	}{
		{sc.functions, domain.ResourceTypeFunction},
		{sc.buckets, domain.ResourceTypeBucket},
		{sc.databases, domain.ResourceTypeDatabase},
		{sc.instances, domain.ResourceTypeInstance},
	} {
		if sel.on {
			types = append(types, sel.t)
		}
	}
	if len(types) == 0 {
		return nil, errors.New("select --all or at least one of --functions, --buckets, --databases, --instances")
	}
	return types, nil
}

func (sc *ScanCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := zerolog.Ctx(ctx)

	types, err := sc.selected()
	if err != nil {
		return setupFailure(err)
	}

	settings, err := sc.env.Settings(ctx)
	if err != nil {
		return err
	}
	if sc.outputDir != "" {
		settings.Report.OutputDir = sc.outputDir
	}
	if sc.bucket != "" {
		settings.Report.Bucket = sc.bucket
	}
	if sc.prefix != "" {
		settings.Report.Prefix = sc.prefix
	}
	if sc.fanOut > 0 {
		settings.FanOut = sc.fanOut
	}

	archive := settings.Report.Bucket != "" || settings.Report.OutputDir != ""
	engine, err := sc.env.engine(ctx, settings, bootstrap.Options{
		Types:     types,
		Inventory: true,
		Steps: scan.Steps{
			Persist: !sc.noPersist,
			Alert:   !sc.noAlert,
			Publish: archive,
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close engine")
		}
	}()

	res, err := engine.Orchestrator.Run(ctx, types)
	if err != nil {
		if errors.Is(err, domain.ErrSetup) {
			return setupFailure(err)
		}
		return err
	}

	for t, enumErr := range res.EnumerationErrors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s skipped: %v\n", t, enumErr)
	}
	if res.Cancelled {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: scan cancelled, report is partial")
	}

	if err := sc.render(cmd, res); err != nil {
		return err
	}

	if res.TotalIssues() > 0 {
		return &ExitError{Code: ExitIssues}
	}
	return nil
}

func (sc *ScanCmd) render(cmd *cobra.Command, res *scan.Result) error {
	out := cmd.OutOrStdout()
	if sc.json {
		if res.ReportURI != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "report archived to %s\n", res.ReportURI)
		}
		content, err := report.JSON(res.Report)
		if err != nil {
			return err
		}
		_, err = report.WriterSink{W: out}.Write(cmd.Context(), "", content, report.ContentTypeJSON)
		return err
	}

	if err := export.NewReporter(out, export.Options{NoColor: sc.env.NoColor}).Handle(res.Report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if res.ReportURI != "" {
		fmt.Fprintf(out, "Report archived to %s\n", res.ReportURI)
	}
	return nil
}
