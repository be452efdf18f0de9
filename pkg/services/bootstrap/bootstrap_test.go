package bootstrap

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/config"
	"github.com/de-tools/compliance-atlas/pkg/services/scan"
	"github.com/de-tools/compliance-atlas/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settings(t *testing.T) config.Settings {
	s, err := config.Load("")
	require.NoError(t, err)
	s.History.DuckDBPath = filepath.Join(t.TempDir(), "history.db")
	return s
}

func TestBuild_LocalHistoryOnly(t *testing.T) {
	s := settings(t)
	s.Report.OutputDir = t.TempDir()

	engine, err := Build(context.Background(), s, Options{Steps: scan.Steps{Persist: true, Publish: true}})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	cfg := engine.Orchestrator.Config()
	assert.NotNil(t, cfg.History)
	assert.NotNil(t, cfg.Runs)
	assert.NotNil(t, cfg.Publisher)
	assert.Nil(t, cfg.Enumerator)
	assert.Nil(t, cfg.Dispatcher)
	assert.Equal(t, 4, cfg.FanOut)
}

func TestBuild_NoHistory(t *testing.T) {
	s := settings(t)
	s.History.Backend = config.HistoryNone

	engine, err := Build(context.Background(), s, Options{})
	require.NoError(t, err)
	assert.Nil(t, engine.Orchestrator.Config().History)
	assert.NoError(t, engine.Close())

	_, err = engine.Orchestrator.Summarize(context.Background(), domain.TimePeriod{})
	assert.Error(t, err)
}

func TestBuild_UnknownBackend(t *testing.T) {
	s := settings(t)
	s.History.Backend = "postgres"

	_, err := Build(context.Background(), s, Options{})
	assert.ErrorIs(t, err, domain.ErrSetup)
}

func TestBuild_FailureClosesHistoryDB(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "aws")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	t.Setenv("AWS_CONFIG_FILE", empty)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", empty)

	var opened *sql.DB
	original := openDB
	openDB = func(s duckdb.Settings) (*sql.DB, error) {
		db, err := original(s)
		opened = db
		return db, err
	}
	t.Cleanup(func() { openDB = original })

	s := settings(t)
	s.Profile = "missing"
	s.Alert.TopicARN = "arn:aws:sns:eu-west-1:1:compliance"

	_, err := Build(context.Background(), s, Options{Steps: scan.Steps{Persist: true, Alert: true}})
	require.ErrorIs(t, err, domain.ErrSetup)
	require.NotNil(t, opened)
	assert.ErrorContains(t, opened.Ping(), "database is closed")
}
