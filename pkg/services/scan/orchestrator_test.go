package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/metrics"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/alert"
	"github.com/de-tools/compliance-atlas/pkg/services/evaluator"
	"github.com/de-tools/compliance-atlas/pkg/services/inventory"
	"github.com/de-tools/compliance-atlas/pkg/services/report"
	"github.com/de-tools/compliance-atlas/pkg/services/rules"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb/evaluation"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb/scanrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var scanTime = time.Date(2024, 8, 1, 6, 0, 0, 0, time.UTC)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Publish(ctx context.Context, subject, body string) error {
	return m.Called(subject, body).Error(0)
}

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) Upsert(ctx context.Context, r domain.EvaluationResult) error {
	return m.Called(r).Error(0)
}

func (m *MockHistory) Query(ctx context.Context, p domain.TimePeriod) ([]domain.EvaluationResult, error) {
	args := m.Called(p)
	return args.Get(0).([]domain.EvaluationResult), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, r *domain.Report) (string, error) {
	args := m.Called(r)
	return args.String(0), args.Error(1)
}

type failingSource struct {
	t   domain.ResourceType
	err error
}

func (s failingSource) ResourceType() domain.ResourceType { return s.t }

func (s failingSource) List(context.Context, *string) (inventory.Page, error) {
	return inventory.Page{}, s.err
}

func static(t domain.ResourceType, rs ...domain.ResourceDescriptor) *inventory.StaticSource {
	return &inventory.StaticSource{Type: t, Resources: rs, PageSize: 1}
}

func bucket(id string, tags map[string]string) domain.ResourceDescriptor {
	return domain.NewResourceDescriptor(domain.ResourceTypeBucket, id, map[string]any{
		domain.AttrEncrypted:         true,
		domain.AttrVersioningEnabled: true,
		domain.AttrTags:              tags,
	})
}

func newOrchestrator(t *testing.T, catalog *rules.Catalog, cfg EngineConfig, sources ...inventory.Source) *Orchestrator {
	enumerator, err := inventory.NewEnumerator(sources...)
	require.NoError(t, err)

	cfg.Enumerator = enumerator
	cfg.Evaluator = evaluator.New(catalog, evaluator.WithClock(func() time.Time { return scanTime }))
	cfg.Clock = func() time.Time { return scanTime }
	cfg.NewID = func() string { return "scan-1" }
	cfg.Region = "eu-west-1"

	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	return o
}

func TestRun_OverProvisionedOnly(t *testing.T) {
	catalog, err := rules.Default(rules.DefaultSettings()).Only(rules.OverProvisioned)
	require.NoError(t, err)

	o := newOrchestrator(t, catalog, EngineConfig{}, static(domain.ResourceTypeFunction,
		domain.NewResourceDescriptor(domain.ResourceTypeFunction, "resize", map[string]any{
			domain.AttrMemoryMB:       4096,
			domain.AttrTimeoutSeconds: 15,
		}),
	))

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, res.Report.Issues, 1)
	require.Len(t, res.Report.Issues[rules.OverProvisioned], 1)
	assert.Equal(t, "resize", res.Report.Issues[rules.OverProvisioned][0].ResourceID)
	assert.Equal(t, domain.TypeTotals{Total: 1, NonCompliant: 1}, res.Report.ResourcesByType[domain.ResourceTypeFunction])
	assert.Equal(t, 1, res.TotalIssues())
}

func TestRun_EmptyResourceSet(t *testing.T) {
	transport := new(MockTransport)
	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{
		Dispatcher: alert.NewDispatcher(transport),
		Steps:      Steps{Alert: true},
	}, static(domain.ResourceTypeDatabase))

	res, err := o.Run(context.Background(), []domain.ResourceType{domain.ResourceTypeDatabase})
	require.NoError(t, err)

	assert.Equal(t, domain.ScanSummary{TotalResources: 0, Compliant: 0, NonCompliant: 0, ComplianceScore: 100.0}, res.Summary)
	assert.False(t, res.AlertSent)
	transport.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRun_MissingOwnerTag(t *testing.T) {
	transport := new(MockTransport)
	transport.On("Publish", mock.Anything, mock.MatchedBy(func(body string) bool {
		return assert.Contains(t, body, "Non-compliant resources: 1 of 2")
	})).Return(nil).Once()

	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{
		Dispatcher: alert.NewDispatcher(transport),
		Steps:      Steps{Alert: true},
	}, static(domain.ResourceTypeBucket,
		bucket("assets", map[string]string{"Owner": "web", "Environment": "prod"}),
		bucket("logs", map[string]string{"Environment": "prod"}),
	))

	res, err := o.Run(context.Background(), []domain.ResourceType{domain.ResourceTypeBucket})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Report.Summary.TotalIssues)
	assert.Equal(t, 1, res.Report.Summary.IssuesByType[rules.MissingRequiredTags])
	assert.Equal(t, []string{"Owner"}, res.Report.Issues[rules.MissingRequiredTags][0].Detail["missing_tags"])
	assert.True(t, res.AlertSent)
	transport.AssertNumberOfCalls(t, "Publish", 1)
}

func TestRun_RuleFailureIsolated(t *testing.T) {
	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{}, static(domain.ResourceTypeBucket,
		domain.NewResourceDescriptor(domain.ResourceTypeBucket, "broken", map[string]any{}),
		bucket("logs", map[string]string{}),
	))

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, res.Report.Issues[rules.MissingRequiredTags], 1)
	assert.Equal(t, "logs", res.Report.Issues[rules.MissingRequiredTags][0].ResourceID)
	assert.Equal(t, domain.TypeTotals{Total: 1, NonCompliant: 1, InsufficientData: 1}, res.Report.ResourcesByType[domain.ResourceTypeBucket])
}

func TestRun_EnumerationFailureSkipsType(t *testing.T) {
	collector := metrics.NewCollector()
	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{Metrics: collector},
		failingSource{t: domain.ResourceTypeFunction, err: errors.New("AccessDenied")},
		static(domain.ResourceTypeBucket, bucket("logs", map[string]string{"Owner": "a", "Environment": "b"})),
	)

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.ErrorContains(t, res.EnumerationErrors[domain.ResourceTypeFunction], "AccessDenied")
	assert.Equal(t, 1, res.Summary.Compliant)
	assert.Equal(t, 100.0, res.Summary.ComplianceScore)
}

func TestRun_StepsAreIndependent(t *testing.T) {
	history := new(MockHistory)
	history.On("Upsert", mock.Anything).Return(errors.New("table missing"))
	transport := new(MockTransport)
	transport.On("Publish", mock.Anything, mock.Anything).Return(nil)
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything).Return("s3://audit/r.json", nil)

	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{
		History:    history,
		Dispatcher: alert.NewDispatcher(transport),
		Publisher:  publisher,
		Steps:      Steps{Persist: true, Alert: true, Publish: true},
	}, static(domain.ResourceTypeBucket, bucket("logs", map[string]string{})))

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.ErrorContains(t, res.StepErrors[StepPersist], "table missing")
	assert.True(t, res.AlertSent)
	assert.Equal(t, "s3://audit/r.json", res.ReportURI)
	assert.NotContains(t, res.StepErrors, StepAlert)
	assert.NotContains(t, res.StepErrors, StepPublish)
}

func TestRun_StepsDisabled(t *testing.T) {
	history := new(MockHistory)
	transport := new(MockTransport)

	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{
		History:    history,
		Dispatcher: alert.NewDispatcher(transport),
	}, static(domain.ResourceTypeBucket, bucket("logs", map[string]string{})))

	_, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	history.AssertNotCalled(t, "Upsert", mock.Anything)
	transport.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := new(MockTransport)

	var resources []domain.ResourceDescriptor
	for _, id := range []string{"a", "b", "c"} {
		resources = append(resources, bucket(id, map[string]string{}))
	}
	source := &cancellingSource{StaticSource: static(domain.ResourceTypeBucket, resources...), cancel: cancel, after: 2}

	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{
		Dispatcher: alert.NewDispatcher(transport),
		Steps:      Steps{Alert: true},
		FanOut:     1,
	}, source, static(domain.ResourceTypeDatabase))

	res, err := o.Run(ctx, []domain.ResourceType{domain.ResourceTypeBucket, domain.ResourceTypeDatabase})
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, 2, res.TotalIssues())
	assert.Empty(t, res.EnumerationErrors)
	assert.False(t, res.AlertSent)
	transport.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

// cancellingSource cancels the scan after serving a number of pages.
type cancellingSource struct {
	*inventory.StaticSource
	cancel context.CancelFunc
	after  int
	served int
}

func (s *cancellingSource) List(ctx context.Context, token *string) (inventory.Page, error) {
	page, err := s.StaticSource.List(ctx, token)
	s.served++
	if s.served == s.after {
		s.cancel()
	}
	return page, err
}

func TestRun_HistoryRoundTrip(t *testing.T) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := evaluation.NewStore(db)
	require.NoError(t, err)
	runs, err := scanrun.NewStore(db)
	require.NoError(t, err)

	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{
		History: store,
		Runs:    runs,
		Steps:   Steps{Persist: true},
	},
		static(domain.ResourceTypeBucket,
			bucket("assets", map[string]string{"Owner": "web", "Environment": "prod"}),
			bucket("logs", map[string]string{}),
			domain.NewResourceDescriptor(domain.ResourceTypeBucket, "broken", nil),
		),
		static(domain.ResourceTypeDatabase, domain.NewResourceDescriptor(domain.ResourceTypeDatabase, "orders", map[string]any{
			domain.AttrEncrypted:           true,
			domain.AttrBackupRetentionDays: 14,
			domain.AttrPubliclyAccessible:  false,
			domain.AttrTags:                map[string]string{"Owner": "data", "Environment": "prod"},
		})),
	)

	ctx := context.Background()
	live, err := o.Run(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, live.StepErrors)

	stored, err := o.Summarize(ctx, domain.LastPeriod(scanTime.Add(time.Minute), time.Hour))
	require.NoError(t, err)
	assert.Equal(t, live.Summary, stored.Summary)
	assert.Equal(t, domain.NewScanSummary(2, 1), stored.Summary)

	recorded, err := runs.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "scan-1", recorded[0].ID)
	assert.Equal(t, live.Summary, recorded[0].Summary)
}

func TestEvaluateResource(t *testing.T) {
	history := new(MockHistory)
	history.On("Upsert", mock.MatchedBy(func(r domain.EvaluationResult) bool {
		return r.ResourceID == "logs" && !r.Compliant
	})).Return(nil).Once()

	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{History: history}, static(domain.ResourceTypeBucket))
	ctx := context.Background()

	ev := o.EvaluateResource(ctx, bucket("logs", map[string]string{}))
	assert.Equal(t, domain.VerdictNonCompliant, ev.Verdict)
	require.NoError(t, o.RecordEvaluation(ctx, ev))

	na := o.EvaluateResource(ctx, domain.NewResourceDescriptor("queue", "q", nil))
	assert.Equal(t, domain.VerdictNotApplicable, na.Verdict)
	require.NoError(t, o.RecordEvaluation(ctx, na))

	history.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestPublishedReportIsArchived(t *testing.T) {
	dir := t.TempDir()
	o := newOrchestrator(t, rules.Default(rules.DefaultSettings()), EngineConfig{
		Publisher: report.NewPublisher(report.FileSink{Dir: dir}, "compliance"),
		Steps:     Steps{Publish: true},
	}, static(domain.ResourceTypeBucket, bucket("logs", map[string]string{})))

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, res.ReportURI, "compliance/2024/08/01/compliance-report-20240801T060000Z.json")
}
