package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/adapters"
	"github.com/de-tools/compliance-atlas/pkg/models/api"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/scan"
	"github.com/rs/zerolog"
)

const defaultLookback = 24 * time.Hour

// Engine is the part of the scan orchestrator the HTTP surface needs.
type Engine interface {
	EvaluateResource(ctx context.Context, d domain.ResourceDescriptor) domain.Evaluation
	RecordEvaluation(ctx context.Context, ev domain.Evaluation) error
	Summarize(ctx context.Context, period domain.TimePeriod) (*scan.HistorySummary, error)
}

type Handler struct {
	engine   Engine
	severity adapters.SeverityLookup
	now      func() time.Time
}

func NewHandler(engine Engine, severity adapters.SeverityLookup) *Handler {
	return &Handler{
		engine:   engine,
		severity: severity,
		now:      time.Now,
	}
}

// Evaluate runs the catalog against a single descriptor. Every verdict,
// NOT_APPLICABLE included, is a 200.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var body api.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid descriptor body")
		return
	}
	persist := false
	if raw := r.URL.Query().Get("persist"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(ctx, w, http.StatusBadRequest, "invalid 'persist' value")
			return
		}
		persist = v
	}

	ev := h.engine.EvaluateResource(ctx, adapters.MapDescriptorApiToDomain(body))
	response := adapters.MapEvaluationDomainToApi(ev, h.severity)

	if persist && ev.Verdict.Decisive() {
		if err := h.engine.RecordEvaluation(ctx, ev); err != nil {
			logger.Error().
				Err(err).
				Str("resource_id", ev.ResourceID).
				Msg("failed to persist evaluation")
		} else {
			response.Persisted = true
		}
	}

	writeJSON(ctx, w, http.StatusOK, response)
}

// Summary recomputes the scan summary over the trailing window given by
// the 'since' query parameter.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	lookback := defaultLookback
	if since := r.URL.Query().Get("since"); since != "" {
		d, err := domain.ParseLookback(since)
		if err != nil {
			writeError(ctx, w, http.StatusBadRequest, "invalid 'since' value. Expected a duration such as 24h or 7d")
			return
		}
		lookback = d
	}

	summary, err := h.engine.Summarize(ctx, domain.LastPeriod(h.now(), lookback))
	if errors.Is(err, scan.ErrNoHistory) {
		writeError(ctx, w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to summarize history")
		writeError(ctx, w, http.StatusInternalServerError, "failed to summarize history")
		return
	}

	writeJSON(ctx, w, http.StatusOK, api.SummaryResponse{
		Period:  adapters.MapTimePeriodDomainToApi(summary.Period),
		Summary: adapters.MapSummaryDomainToApi(summary.Summary),
		ByType:  adapters.MapTypeTotalsDomainToApi(summary.ByType),
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeJSON(ctx, w, status, api.ErrorResponse{Error: message})
}
