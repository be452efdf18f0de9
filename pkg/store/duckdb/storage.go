package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const EvaluationResultsSchema = `
	CREATE TABLE IF NOT EXISTS evaluation_results (
		resource_id VARCHAR NOT NULL,
		resource_type VARCHAR NOT NULL,
		compliant BOOLEAN NOT NULL,
		evaluated_at TIMESTAMP NOT NULL,
		details VARCHAR,
		PRIMARY KEY (resource_id, resource_type)
	);
`
const ScanRunsSchema = `
	CREATE TABLE IF NOT EXISTS scan_runs (
		id VARCHAR PRIMARY KEY,
		region VARCHAR,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		total_resources INTEGER NOT NULL,
		compliant INTEGER NOT NULL,
		non_compliant INTEGER NOT NULL,
		compliance_score DOUBLE NOT NULL,
		total_issues INTEGER NOT NULL,
		cancelled BOOLEAN NOT NULL DEFAULT FALSE
	);
`

var bootQueries = []string{
	EvaluationResultsSchema,
	ScanRunsSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", settings.DbPath, err)
	}

	db := sql.OpenDB(c)
	return db, nil
}
