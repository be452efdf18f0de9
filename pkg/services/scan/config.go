package scan

import (
	"context"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/metrics"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/alert"
	"github.com/de-tools/compliance-atlas/pkg/services/evaluator"
	"github.com/de-tools/compliance-atlas/pkg/services/inventory"
	"github.com/de-tools/compliance-atlas/pkg/store/history"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb/scanrun"
)

const DefaultFanOut = 4

const (
	StepPersist = "persist"
	StepAlert   = "alert"
	StepPublish = "publish"
)

// Steps toggles the optional stages of a batch scan.
type Steps struct {
	Persist bool
	Alert   bool
	Publish bool
}

type ReportPublisher interface {
	Publish(ctx context.Context, r *domain.Report) (string, error)
}

// EngineConfig holds every collaborator of a scan. It is built once and
// shared by reference; nothing in it is mutated by a run.
type EngineConfig struct {
	Region     string
	Evaluator  *evaluator.Evaluator
	Enumerator *inventory.Enumerator
	History    history.Store
	Dispatcher *alert.Dispatcher
	Publisher  ReportPublisher
	Runs       scanrun.Store
	Metrics    *metrics.Collector
	FanOut     int
	Steps      Steps
	Clock      func() time.Time
	NewID      func() string
}
