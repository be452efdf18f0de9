package rules

import "github.com/de-tools/compliance-atlas/pkg/models/domain"

func BucketRules() []Rule {
	return []Rule{
		encryptionAtRestRule(domain.ResourceTypeBucket),
		{
			Name:        VersioningDisabled,
			AppliesTo:   domain.ResourceTypeBucket,
			Severity:    domain.SeverityMedium,
			Description: "Object versioning is not enabled",
			Predicate: func(d domain.ResourceDescriptor, _ Settings) (bool, error) {
				enabled, err := d.Bool(domain.AttrVersioningEnabled)
				return !enabled, err
			},
			Detail: func(domain.ResourceDescriptor, Settings) (map[string]any, error) {
				return map[string]any{"versioning_enabled": false}, nil
			},
		},
		missingTagsRule(domain.ResourceTypeBucket),
	}
}

func DatabaseRules() []Rule {
	return []Rule{
		encryptionAtRestRule(domain.ResourceTypeDatabase),
		{
			Name:        BackupRetentionBelowFloor,
			AppliesTo:   domain.ResourceTypeDatabase,
			Severity:    domain.SeverityMedium,
			Description: "Automated backup retention is shorter than required",
			Predicate: func(d domain.ResourceDescriptor, s Settings) (bool, error) {
				days, err := d.Int(domain.AttrBackupRetentionDays)
				if err != nil {
					return false, err
				}
				return days < s.BackupRetentionDays, nil
			},
			Detail: func(d domain.ResourceDescriptor, s Settings) (map[string]any, error) {
				days, err := d.Int(domain.AttrBackupRetentionDays)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"retention_days": days,
					"required_days":  s.BackupRetentionDays,
				}, nil
			},
		},
		{
			Name:        PubliclyAccessible,
			AppliesTo:   domain.ResourceTypeDatabase,
			Severity:    domain.SeverityCritical,
			Description: "Database endpoint is reachable from the internet",
			Predicate: func(d domain.ResourceDescriptor, _ Settings) (bool, error) {
				return d.Bool(domain.AttrPubliclyAccessible)
			},
			Detail: func(d domain.ResourceDescriptor, _ Settings) (map[string]any, error) {
				engine, _ := d.String(domain.AttrEngine)
				return map[string]any{"engine": engine}, nil
			},
		},
		missingTagsRule(domain.ResourceTypeDatabase),
	}
}

func InstanceRules() []Rule {
	return []Rule{
		riskyEgressRule(domain.ResourceTypeInstance),
		{
			Name:        UnencryptedVolumes,
			AppliesTo:   domain.ResourceTypeInstance,
			Severity:    domain.SeverityHigh,
			Description: "One or more attached volumes are not encrypted",
			Predicate: func(d domain.ResourceDescriptor, _ Settings) (bool, error) {
				ids, err := unencryptedVolumes(d)
				return len(ids) > 0, err
			},
			Detail: func(d domain.ResourceDescriptor, _ Settings) (map[string]any, error) {
				ids, err := unencryptedVolumes(d)
				if err != nil {
					return nil, err
				}
				return map[string]any{"volumes": ids}, nil
			},
		},
		missingTagsRule(domain.ResourceTypeInstance),
	}
}

func unencryptedVolumes(d domain.ResourceDescriptor) ([]string, error) {
	volumes, err := d.Volumes()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, v := range volumes {
		if !v.Encrypted {
			ids = append(ids, v.ID)
		}
	}
	return ids, nil
}
