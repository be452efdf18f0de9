package config

import (
	"fmt"
	"strings"

	"github.com/de-tools/compliance-atlas/pkg/services/rules"
	"github.com/spf13/viper"
)

const EnvPrefix = "COMPLIANCE"

const (
	HistoryDuckDB   = "duckdb"
	HistoryDynamoDB = "dynamodb"
	HistoryNone     = "none"
)

type Settings struct {
	Region  string          `mapstructure:"region"`
	Profile string          `mapstructure:"profile"`
	FanOut  int             `mapstructure:"fan_out"`
	History HistorySettings `mapstructure:"history"`
	Alert   AlertSettings   `mapstructure:"alert"`
	Report  ReportSettings  `mapstructure:"report"`
	Server  ServerSettings  `mapstructure:"server"`
	Rules   rules.Settings  `mapstructure:"rules"`
}

type HistorySettings struct {
	Backend       string `mapstructure:"backend"`
	DuckDBPath    string `mapstructure:"duckdb_path"`
	DynamoDBTable string `mapstructure:"dynamodb_table"`
}

type AlertSettings struct {
	TopicARN string `mapstructure:"topic_arn"`
}

type ReportSettings struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	OutputDir string `mapstructure:"output_dir"`
}

type ServerSettings struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	r := rules.DefaultSettings()

	v.SetDefault("region", "")
	v.SetDefault("profile", "")
	v.SetDefault("fan_out", 4)
	v.SetDefault("history.backend", HistoryDuckDB)
	v.SetDefault("history.duckdb_path", "compliance.db")
	v.SetDefault("history.dynamodb_table", "compliance-evaluations")
	v.SetDefault("alert.topic_arn", "")
	v.SetDefault("report.bucket", "")
	v.SetDefault("report.prefix", "compliance-reports")
	v.SetDefault("report.output_dir", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("rules.memory_ceiling_mb", r.MemoryCeilingMB)
	v.SetDefault("rules.timeout_floor_seconds", r.TimeoutFloorSeconds)
	v.SetDefault("rules.backup_retention_days", r.BackupRetentionDays)
	v.SetDefault("rules.required_tags", r.RequiredTags)
	v.SetDefault("rules.deprecated_runtimes", r.DeprecatedRuntimes)
}

// Load reads settings from defaults, the optional file at path and
// COMPLIANCE_* environment variables, in increasing precedence.
func Load(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch s.History.Backend {
	case HistoryDuckDB, HistoryDynamoDB, HistoryNone:
	default:
		return fmt.Errorf("unknown history backend %q", s.History.Backend)
	}
	if s.FanOut < 1 {
		return fmt.Errorf("fan_out must be at least 1, got %d", s.FanOut)
	}
	if s.Rules.MemoryCeilingMB <= 0 || s.Rules.TimeoutFloorSeconds <= 0 {
		return fmt.Errorf("rule thresholds must be positive")
	}
	return nil
}
