package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/metrics"
	"github.com/de-tools/compliance-atlas/pkg/models/api"
	"github.com/de-tools/compliance-atlas/pkg/services/evaluator"
	"github.com/de-tools/compliance-atlas/pkg/services/rules"
	"github.com/de-tools/compliance-atlas/pkg/services/scan"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb/evaluation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := evaluation.NewStore(db)
	require.NoError(t, err)

	catalog := rules.Default(rules.DefaultSettings())
	collector := metrics.NewCollector()
	orchestrator, err := scan.NewOrchestrator(scan.EngineConfig{
		Evaluator: evaluator.New(catalog),
		History:   store,
		Metrics:   collector,
	})
	require.NoError(t, err)

	config := Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		Dependencies: Dependencies{
			Engine:   orchestrator,
			Severity: catalog.Severity,
			Metrics:  collector.Handler(),
			Logger:   logger,
		},
	}
	testServer := httptest.NewServer(ConfigureRouter(config))
	t.Cleanup(testServer.Close)
	return testServer
}

func TestWebAPI_Endpoints(t *testing.T) {
	testServer := setupServer(t)

	// Requests run in order; the summary depends on the persisted evaluation.
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "EvaluateNonCompliantBucket",
			method:         http.MethodPost,
			path:           "/api/v1/evaluate?persist=true",
			body:           `{"resource_type":"bucket","resource_id":"logs","attributes":{"encrypted":true,"versioning_enabled":false,"tags":{}}}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				resp, err := unmarshalResponse[api.EvaluationResponse]()(body)
				require.NoError(t, err)
				assert.Equal(t, "NON_COMPLIANT", resp.Verdict)
				assert.True(t, resp.Persisted)
				var categories []string
				for _, issue := range resp.Issues {
					categories = append(categories, issue.Category)
				}
				assert.Equal(t, []string{rules.VersioningDisabled, rules.MissingRequiredTags}, categories)
				assert.Equal(t, "medium", resp.Issues[0].Severity)
			},
		},
		{
			name:           "EvaluateUnknownType",
			method:         http.MethodPost,
			path:           "/api/v1/evaluate",
			body:           `{"resource_type":"queue","resource_id":"jobs","attributes":{}}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				resp, err := unmarshalResponse[api.EvaluationResponse]()(body)
				require.NoError(t, err)
				assert.Equal(t, "NOT_APPLICABLE", resp.Verdict)
			},
		},
		{
			name:           "EvaluateMissingAttribute",
			method:         http.MethodPost,
			path:           "/api/v1/evaluate",
			body:           `{"resource_type":"bucket","resource_id":"bare","attributes":{}}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				resp, err := unmarshalResponse[api.EvaluationResponse]()(body)
				require.NoError(t, err)
				assert.Equal(t, "INSUFFICIENT_DATA", resp.Verdict)
				assert.Equal(t, rules.EncryptionAtRestAbsent, resp.FailedRule)
				assert.Empty(t, resp.Issues)
			},
		},
		{
			name:           "EvaluateInvalidBody",
			method:         http.MethodPost,
			path:           "/api/v1/evaluate",
			body:           `[`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				resp, err := unmarshalResponse[api.ErrorResponse]()(body)
				require.NoError(t, err)
				assert.Equal(t, "invalid descriptor body", resp.Error)
			},
		},
		{
			name:           "Summary",
			method:         http.MethodGet,
			path:           "/api/v1/summary?since=1h",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				resp, err := unmarshalResponse[api.SummaryResponse]()(body)
				require.NoError(t, err)
				assert.Equal(t, api.Summary{TotalResources: 1, NonCompliant: 1}, resp.Summary)
				assert.Equal(t, api.TypeTotals{Total: 1, NonCompliant: 1}, resp.ByType["bucket"])
			},
		},
		{
			name:           "SummaryInvalidSince",
			method:         http.MethodGet,
			path:           "/api/v1/summary?since=soon",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Metrics",
			method:         http.MethodGet,
			path:           "/metrics",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), `compliance_evaluations_total{resource_type="bucket",verdict="NON_COMPLIANT"} 1`)
				assert.Contains(t, string(body), `compliance_evaluations_total{resource_type="queue",verdict="NOT_APPLICABLE"} 1`)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, testServer.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err, "Failed to send request")
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "Status code mismatch")

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err, "Failed to read response body")
			if tc.check != nil {
				tc.check(t, body)
			}
		})
	}
}

func TestWebAPI_MetricsRouteOptional(t *testing.T) {
	router := ConfigureRouter(Config{Dependencies: Dependencies{Logger: zerolog.Nop()}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func unmarshalResponse[T any]() func([]byte) (T, error) {
	return func(data []byte) (T, error) {
		var result T
		err := json.Unmarshal(data, &result)
		return result, err
	}
}
