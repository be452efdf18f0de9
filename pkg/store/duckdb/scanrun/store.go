package scanrun

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb"
)

// Store records finished batch scans.
type Store interface {
	Record(ctx context.Context, run domain.ScanRun) error
	List(ctx context.Context, limit int) ([]domain.ScanRun, error)
}

type defaultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{
		db: db,
	}, nil
}

func (s *defaultStore) Record(ctx context.Context, run domain.ScanRun) error {
	query := `
		INSERT INTO scan_runs (
			id, region, started_at, finished_at, total_resources, compliant,
			non_compliant, compliance_score, total_issues, cancelled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		run.ID,
		run.Region,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.Summary.TotalResources,
		run.Summary.Compliant,
		run.Summary.NonCompliant,
		run.Summary.ComplianceScore,
		run.TotalIssues,
		run.Cancelled,
	}

	var err error
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = s.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("insert scan run %s: %w", run.ID, err)
	}
	return nil
}

// List returns the most recent runs first.
func (s *defaultStore) List(ctx context.Context, limit int) ([]domain.ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, region, started_at, finished_at, total_resources, compliant,
			non_compliant, compliance_score, total_issues, cancelled
		FROM scan_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ScanRun
	for rows.Next() {
		var run domain.ScanRun
		var region sql.NullString
		if err := rows.Scan(
			&run.ID,
			&region,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Summary.TotalResources,
			&run.Summary.Compliant,
			&run.Summary.NonCompliant,
			&run.Summary.ComplianceScore,
			&run.TotalIssues,
			&run.Cancelled,
		); err != nil {
			return nil, fmt.Errorf("scan scan run: %w", err)
		}
		run.Region = region.String
		run.StartedAt = run.StartedAt.UTC()
		run.FinishedAt = run.FinishedAt.UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
