package scanrun

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	store, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{
		db:    db,
		store: store,
	}
}

func TestNewStore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := setupFixture(t)
		assert.NotNil(t, f.store)
	})

	t.Run("nil db", func(t *testing.T) {
		store, err := NewStore(nil)
		assert.Error(t, err)
		assert.Nil(t, store)
	})
}

func TestStore_RecordAndList(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	first := domain.ScanRun{
		ID:          "run-1",
		Region:      "eu-west-1",
		StartedAt:   start,
		FinishedAt:  start.Add(time.Minute),
		Summary:     domain.NewScanSummary(3, 1),
		TotalIssues: 2,
	}
	second := domain.ScanRun{
		ID:         "run-2",
		Region:     "eu-west-1",
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour + time.Second),
		Summary:    domain.NewScanSummary(0, 0),
		Cancelled:  true,
	}
	require.NoError(t, f.store.Record(ctx, first))
	require.NoError(t, f.store.Record(ctx, second))

	t.Run("duplicate id", func(t *testing.T) {
		assert.Error(t, f.store.Record(ctx, first))
	})

	runs, err := f.store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.True(t, runs[0].Cancelled)
	assert.Equal(t, 100.0, runs[0].Summary.ComplianceScore)
	assert.Equal(t, first, runs[1])

	runs, err = f.store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
