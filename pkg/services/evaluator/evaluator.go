package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/rules"
	"github.com/rs/zerolog"
)

// Evaluator applies a rule catalog to resource descriptors. It is safe for
// concurrent use.
type Evaluator struct {
	catalog *rules.Catalog
	now     func() time.Time
}

type Option func(*Evaluator)

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

func New(catalog *rules.Catalog, opts ...Option) *Evaluator {
	e := &Evaluator{
		catalog: catalog,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Catalog() *rules.Catalog {
	return e.catalog
}

// Evaluate never fails: rule errors and panics turn into INSUFFICIENT_DATA.
func (e *Evaluator) Evaluate(ctx context.Context, d domain.ResourceDescriptor) domain.Evaluation {
	now := e.now().UTC()
	ev := domain.Evaluation{
		ResourceID:   d.ID,
		ResourceType: d.Type,
		EvaluatedAt:  now,
	}

	var catalog []rules.Rule
	if e.catalog != nil {
		catalog = e.catalog.For(d.Type)
	}
	if !d.Type.Valid() || len(catalog) == 0 {
		ev.Verdict = domain.VerdictNotApplicable
		return ev
	}

	settings := e.catalog.Settings()
	for _, r := range catalog {
		failed, detail, err := check(r, d, settings)
		if err != nil {
			zerolog.Ctx(ctx).Warn().
				Err(err).
				Str("rule", r.Name).
				Str("resource_type", d.Type.String()).
				Str("resource_id", d.ID).
				Msg("rule evaluation failed")
			ev.Verdict = domain.VerdictInsufficientData
			ev.FailedRule = r.Name
			ev.Err = err
			ev.Issues = nil
			return ev
		}
		if failed {
			ev.Issues = append(ev.Issues, domain.IssueRecord{
				Category:     r.Name,
				ResourceID:   d.ID,
				ResourceType: d.Type,
				Detail:       detail,
				DetectedAt:   now,
			})
		}
	}

	if len(ev.Issues) > 0 {
		ev.Verdict = domain.VerdictNonCompliant
	} else {
		ev.Verdict = domain.VerdictCompliant
	}
	return ev
}

func check(r rules.Rule, d domain.ResourceDescriptor, s rules.Settings) (failed bool, detail map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			failed, detail = false, nil
			err = fmt.Errorf("rule %s panicked: %v", r.Name, p)
		}
	}()
	return r.Check(d, s)
}
