package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/compliance-atlas/pkg/services/bootstrap"
	"github.com/de-tools/compliance-atlas/pkg/services/scan"
	"github.com/spf13/cobra"
)

type HistoryCmd struct {
	env   *Env
	since string
	runs  int
	json  bool
	now   func() time.Time
}

func NewHistoryCmd(env *Env) *cobra.Command {
	hc := &HistoryCmd{env: env, now: time.Now}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarize stored evaluation results over a trailing window",
		RunE:  hc.run,
	}

	cmd.Flags().StringVar(&hc.since, "since", "24h", "Trailing window, e.g. 24h or 7d")
	cmd.Flags().IntVar(&hc.runs, "runs", 0, "Also list this many recent scans (local history only)")
	cmd.Flags().BoolVar(&hc.json, "json", false, "Print the summary as JSON")

	return cmd
}

func (hc *HistoryCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	lookback, err := domain.ParseLookback(hc.since)
	if err != nil {
		return setupFailure(err)
	}

	settings, err := hc.env.Settings(ctx)
	if err != nil {
		return err
	}
	engine, err := hc.env.engine(ctx, settings, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer engine.Close()

	summary, err := engine.Orchestrator.Summarize(ctx, domain.LastPeriod(hc.now(), lookback))
	if errors.Is(err, scan.ErrNoHistory) {
		return setupFailure(err)
	}
	if err != nil {
		return err
	}

	view := export.HistoryView{
		Period:  summary.Period,
		Summary: summary.Summary,
		ByType:  summary.ByType,
	}
	if hc.runs > 0 && engine.Runs != nil {
		runs, err := engine.Runs.List(ctx, hc.runs)
		if err != nil {
			return fmt.Errorf("failed to list scan runs: %w", err)
		}
		view.Runs = runs
	}

	if hc.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return export.NewHistoryReporter(cmd.OutOrStdout()).Handle(view)
}
