package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/aggregator"
	"github.com/de-tools/compliance-atlas/pkg/services/alert"
	"github.com/de-tools/compliance-atlas/pkg/services/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Orchestrator struct {
	cfg EngineConfig
}

func NewOrchestrator(cfg EngineConfig) (*Orchestrator, error) {
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.FanOut <= 0 {
		cfg.FanOut = DefaultFanOut
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Orchestrator{cfg: cfg}, nil
}

func (o *Orchestrator) Config() EngineConfig {
	return o.cfg
}

// Result is the outcome of one batch scan. A cancelled scan still carries
// everything aggregated before cancellation.
type Result struct {
	ScanID            string
	Report            *domain.Report
	Summary           domain.ScanSummary
	EnumerationErrors map[domain.ResourceType]error
	StepErrors        map[string]error
	AlertSent         bool
	ReportURI         string
	Cancelled         bool
}

func (r *Result) TotalIssues() int {
	if r == nil || r.Report == nil {
		return 0
	}
	return r.Report.Summary.TotalIssues
}

// EvaluateResource is the single-resource entry point. It always returns a verdict.
func (o *Orchestrator) EvaluateResource(ctx context.Context, d domain.ResourceDescriptor) domain.Evaluation {
	ev := o.cfg.Evaluator.Evaluate(ctx, d)
	o.cfg.Metrics.Evaluation(ev.ResourceType, ev.Verdict)
	return ev
}

// RecordEvaluation persists a decisive verdict. Other verdicts are skipped.
func (o *Orchestrator) RecordEvaluation(ctx context.Context, ev domain.Evaluation) error {
	if o.cfg.History == nil {
		return nil
	}
	result, ok := ev.Result()
	if !ok {
		return nil
	}
	if err := o.cfg.History.Upsert(ctx, result); err != nil {
		o.cfg.Metrics.StepFailure(StepPersist)
		return err
	}
	return nil
}

// Run scans every type in types, or every supported type when types is empty.
func (o *Orchestrator) Run(ctx context.Context, types []domain.ResourceType) (*Result, error) {
	if o.cfg.Enumerator == nil {
		return nil, fmt.Errorf("%w: no inventory configured", domain.ErrSetup)
	}
	if len(types) == 0 {
		types = o.cfg.Enumerator.SupportedTypes()
	}

	started := o.cfg.Clock()
	res := &Result{
		ScanID:            o.cfg.NewID(),
		EnumerationErrors: make(map[domain.ResourceType]error),
		StepErrors:        make(map[string]error),
	}
	logger := zerolog.Ctx(ctx).With().Str("scan_id", res.ScanID).Logger()
	ctx = logger.WithContext(ctx)
	logger.Info().Int("resource_types", len(types)).Int("fan_out", o.cfg.FanOut).Msg("scan started")

	var opts []aggregator.Option
	if o.cfg.Steps.Persist {
		opts = append(opts, aggregator.WithResults())
	}
	root := aggregator.New(o.cfg.Evaluator.Catalog().Categories(), opts...)

	partials := make([]*aggregator.Aggregator, len(types))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(o.cfg.FanOut)
	for i, t := range types {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			partial := root.Fork()
			partials[i] = partial
			if err := o.scanType(ctx, t, partial); err != nil {
				mu.Lock()
				res.EnumerationErrors[t] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range partials {
		root.Merge(p)
	}

	res.Cancelled = ctx.Err() != nil
	res.Report = report.Build(root, report.Meta{
		ScanID:    res.ScanID,
		Region:    o.cfg.Region,
		Timestamp: started,
	})
	res.Summary = res.Report.ResourceSummary

	if res.Cancelled {
		logger.Warn().Err(ctx.Err()).Int("total_issues", res.TotalIssues()).Msg("scan cancelled, returning partial result")
		return res, nil
	}

	o.runSteps(ctx, root, res)

	o.cfg.Metrics.ScanFinished(o.cfg.Clock().Sub(started), res.Summary)
	o.recordRun(ctx, res, started)

	logger.Info().
		Int("total_resources", res.Summary.TotalResources).
		Int("non_compliant", res.Summary.NonCompliant).
		Int("total_issues", res.TotalIssues()).
		Float64("compliance_score", res.Summary.ComplianceScore).
		Msg("scan finished")
	return res, nil
}

func (o *Orchestrator) scanType(ctx context.Context, t domain.ResourceType, agg *aggregator.Aggregator) error {
	logger := zerolog.Ctx(ctx).With().Str("resource_type", t.String()).Logger()

	listing := o.cfg.Enumerator.Enumerate(t)
	count := 0
	for d := range listing.All(ctx) {
		ev := o.EvaluateResource(ctx, d)
		if err := agg.Add(ev); err != nil {
			logger.Error().Err(err).Str("resource_id", d.ID).Msg("evaluation dropped")
		}
		count++
	}

	err := listing.Err()
	if err == nil {
		logger.Debug().Int("resources", count).Msg("resource type scanned")
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	o.cfg.Metrics.EnumerationFailure(t)
	logger.Warn().Err(err).Int("resources", count).Msg("enumeration failed, continuing with remaining resource types")
	return err
}

// runSteps executes the optional stages independently of each other.
func (o *Orchestrator) runSteps(ctx context.Context, agg *aggregator.Aggregator, res *Result) {
	logger := zerolog.Ctx(ctx)

	if o.cfg.Steps.Persist && o.cfg.History != nil {
		if err := o.persist(ctx, agg.Results()); err != nil {
			res.StepErrors[StepPersist] = err
			o.cfg.Metrics.StepFailure(StepPersist)
			logger.Error().Err(err).Msg("persisting evaluation results failed")
		}
	}

	if o.cfg.Steps.Alert && o.cfg.Dispatcher != nil {
		sent, err := o.cfg.Dispatcher.Dispatch(ctx, alert.Alert{
			ScanID:         res.ScanID,
			Region:         o.cfg.Region,
			Summary:        res.Summary,
			ByType:         res.Report.ResourcesByType,
			CategoryCounts: res.Report.Summary.IssuesByType,
		})
		res.AlertSent = sent
		if err != nil {
			res.StepErrors[StepAlert] = err
			o.cfg.Metrics.StepFailure(StepAlert)
			logger.Error().Err(err).Msg("alert dispatch failed")
		}
	}

	if o.cfg.Steps.Publish && o.cfg.Publisher != nil {
		uri, err := o.cfg.Publisher.Publish(ctx, res.Report)
		if err != nil {
			res.StepErrors[StepPublish] = err
			o.cfg.Metrics.StepFailure(StepPublish)
			logger.Error().Err(err).Msg("publishing report failed")
		} else {
			res.ReportURI = uri
			logger.Info().Str("uri", uri).Msg("report published")
		}
	}
}

func (o *Orchestrator) persist(ctx context.Context, results []domain.EvaluationResult) error {
	var errs []error
	for _, r := range results {
		if err := o.cfg.History.Upsert(ctx, r); err != nil {
			zerolog.Ctx(ctx).Warn().
				Err(err).
				Str("resource_type", r.ResourceType.String()).
				Str("resource_id", r.ResourceID).
				Msg("upsert failed")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d upserts failed: %w", len(errs), len(results), errors.Join(errs...))
	}
	return nil
}

func (o *Orchestrator) recordRun(ctx context.Context, res *Result, started time.Time) {
	if o.cfg.Runs == nil {
		return
	}
	err := o.cfg.Runs.Record(ctx, domain.ScanRun{
		ID:          res.ScanID,
		Region:      o.cfg.Region,
		StartedAt:   started,
		FinishedAt:  o.cfg.Clock(),
		Summary:     res.Summary,
		TotalIssues: res.TotalIssues(),
		Cancelled:   res.Cancelled,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("recording scan run failed")
	}
}
