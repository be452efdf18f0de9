package rules

// Settings are the thresholds the seed rules are parameterised with.
type Settings struct {
	MemoryCeilingMB     int      `mapstructure:"memory_ceiling_mb"`
	TimeoutFloorSeconds int      `mapstructure:"timeout_floor_seconds"`
	BackupRetentionDays int      `mapstructure:"backup_retention_days"`
	RequiredTags        []string `mapstructure:"required_tags"`
	DeprecatedRuntimes  []string `mapstructure:"deprecated_runtimes"`
}

func DefaultSettings() Settings {
	return Settings{
		MemoryCeilingMB:     3072,
		TimeoutFloorSeconds: 30,
		BackupRetentionDays: 7,
		RequiredTags:        []string{"Owner", "Environment"},
		DeprecatedRuntimes: []string{
			"python2.7",
			"python3.6",
			"python3.7",
			"python3.8",
			"nodejs10.x",
			"nodejs12.x",
			"nodejs14.x",
			"nodejs16.x",
			"dotnetcore2.1",
			"dotnetcore3.1",
			"dotnet6",
			"ruby2.5",
			"ruby2.7",
			"java8",
			"go1.x",
		},
	}
}
