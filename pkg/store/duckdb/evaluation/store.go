package evaluation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb"
	"github.com/de-tools/compliance-atlas/pkg/store/history"
)

// evaluationStore serialises upserts in-process; DuckDB reports a write
// conflict instead of waiting when two transactions touch the same row.
type evaluationStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(db *sql.DB) (history.Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &evaluationStore{
		db: db,
	}, nil
}

const upsertQuery = `
	INSERT INTO evaluation_results (resource_id, resource_type, compliant, evaluated_at, details)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (resource_id, resource_type) DO UPDATE SET
		compliant = excluded.compliant,
		evaluated_at = excluded.evaluated_at,
		details = excluded.details
	WHERE excluded.evaluated_at >= evaluated_at`

func (s *evaluationStore) Upsert(ctx context.Context, result domain.EvaluationResult) error {
	details, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return duckdb.InTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, upsertQuery,
			result.ResourceID,
			string(result.ResourceType),
			result.Compliant,
			result.EvaluationTimestamp.UTC(),
			string(details),
		)
		if err != nil {
			return fmt.Errorf("upsert evaluation result %s: %w", result.ResourceID, err)
		}
		return nil
	})
}

func (s *evaluationStore) Query(ctx context.Context, period domain.TimePeriod) ([]domain.EvaluationResult, error) {
	query := `
		SELECT resource_id, resource_type, compliant, evaluated_at, details
		FROM evaluation_results
		WHERE evaluated_at >= ? AND evaluated_at < ?
		ORDER BY evaluated_at, resource_type, resource_id`

	var rows *sql.Rows
	var err error
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		rows, err = tx.QueryContext(ctx, query, period.Start.UTC(), period.End.UTC())
	} else {
		rows, err = s.db.QueryContext(ctx, query, period.Start.UTC(), period.End.UTC())
	}
	if err != nil {
		return nil, fmt.Errorf("query evaluation results: %w", err)
	}
	defer rows.Close()

	var results []domain.EvaluationResult
	for rows.Next() {
		var (
			r            domain.EvaluationResult
			resourceType string
			details      sql.NullString
		)
		if err := rows.Scan(&r.ResourceID, &resourceType, &r.Compliant, &r.EvaluationTimestamp, &details); err != nil {
			return nil, fmt.Errorf("scan evaluation result: %w", err)
		}
		r.ResourceType = domain.ResourceType(resourceType)
		r.EvaluationTimestamp = r.EvaluationTimestamp.UTC()
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &r.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details for %s: %w", r.ResourceID, err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation results: %w", err)
	}
	return results, nil
}
