package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, s.FanOut)
	assert.Equal(t, HistoryDuckDB, s.History.Backend)
	assert.Equal(t, 3072, s.Rules.MemoryCeilingMB)
	assert.Equal(t, 30, s.Rules.TimeoutFloorSeconds)
	assert.Equal(t, 7, s.Rules.BackupRetentionDays)
	assert.Equal(t, []string{"Owner", "Environment"}, s.Rules.RequiredTags)
	assert.Contains(t, s.Rules.DeprecatedRuntimes, "python3.7")
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := write(t, t.TempDir(), "compliance.yaml", `region: eu-west-1
fan_out: 8
history:
  backend: dynamodb
  dynamodb_table: results
rules:
  memory_ceiling_mb: 2048
  required_tags: [Team]
`)
	t.Setenv("COMPLIANCE_FAN_OUT", "2")
	t.Setenv("COMPLIANCE_ALERT_TOPIC_ARN", "arn:aws:sns:eu-west-1:1:alerts")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", s.Region)
	assert.Equal(t, 2, s.FanOut)
	assert.Equal(t, HistoryDynamoDB, s.History.Backend)
	assert.Equal(t, "results", s.History.DynamoDBTable)
	assert.Equal(t, "arn:aws:sns:eu-west-1:1:alerts", s.Alert.TopicARN)
	assert.Equal(t, 2048, s.Rules.MemoryCeilingMB)
	assert.Equal(t, 30, s.Rules.TimeoutFloorSeconds)
	assert.Equal(t, []string{"Team"}, s.Rules.RequiredTags)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(write(t, dir, "bad.yaml", "history:\n  backend: postgres\n"))
	assert.ErrorContains(t, err, "unknown history backend")

	_, err = Load(write(t, dir, "fan.yaml", "fan_out: 0\n"))
	assert.ErrorContains(t, err, "fan_out")
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	configPath := write(t, dir, "config", `[default]
region = us-east-1

[profile audit]
region = eu-west-1

[sso-session corp]
sso_region = us-east-1
`)
	credentialsPath := write(t, dir, "credentials", `[default]
aws_access_key_id = x

[ci]
aws_access_key_id = y
`)

	r, err := NewRegistry(configPath, credentialsPath)
	require.NoError(t, err)
	ctx := context.Background()

	profiles, err := r.GetProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "ci", "default"}, profiles)

	region, err := r.GetRegion(ctx, "audit")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", region)

	region, err = r.GetRegion(ctx, "ci")
	require.NoError(t, err)
	assert.Empty(t, region)

	_, err = r.GetRegion(ctx, "prod")
	assert.ErrorContains(t, err, "not found")

	_, err = NewRegistry(filepath.Join(dir, "nope"), filepath.Join(dir, "nope2"))
	assert.Error(t, err)
}
