package history

import (
	"context"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// Store keeps the latest evaluation result per (resource_id, resource_type).
// Upsert must ignore a result older than the one already stored.
type Store interface {
	Upsert(ctx context.Context, result domain.EvaluationResult) error
	Query(ctx context.Context, period domain.TimePeriod) ([]domain.EvaluationResult, error)
}
