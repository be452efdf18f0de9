package rules

import (
	"slices"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

const (
	OverProvisioned           = "over-provisioned"
	UnencryptedEnvironment    = "unencrypted-environment-variables"
	RiskyNetworkEgress        = "risky-network-egress"
	DeprecatedRuntime         = "deprecated-runtime"
	MissingRequiredTags       = "missing-required-tags"
	EncryptionAtRestAbsent    = "encryption-at-rest-absent"
	VersioningDisabled        = "versioning-disabled"
	BackupRetentionBelowFloor = "backup-retention-below-floor"
	PubliclyAccessible        = "publicly-accessible"
	UnencryptedVolumes        = "unencrypted-volumes"
)

const openIPv4 = "0.0.0.0/0"

func missingTagsRule(t domain.ResourceType) Rule {
	return Rule{
		Name:        MissingRequiredTags,
		AppliesTo:   t,
		Severity:    domain.SeverityLow,
		Description: "Resource is missing one or more required tag keys",
		Predicate: func(d domain.ResourceDescriptor, s Settings) (bool, error) {
			missing, err := missingTags(d, s.RequiredTags)
			return len(missing) > 0, err
		},
		Detail: func(d domain.ResourceDescriptor, s Settings) (map[string]any, error) {
			missing, err := missingTags(d, s.RequiredTags)
			if err != nil {
				return nil, err
			}
			return map[string]any{"missing_tags": missing}, nil
		},
	}
}

// missingTags keeps the order of the required list.
func missingTags(d domain.ResourceDescriptor, required []string) ([]string, error) {
	tags, err := d.StringMap(domain.AttrTags)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, key := range required {
		if _, ok := tags[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing, nil
}

func riskyEgressRule(t domain.ResourceType) Rule {
	return Rule{
		Name:        RiskyNetworkEgress,
		AppliesTo:   t,
		Severity:    domain.SeverityHigh,
		Description: "An attached security group allows unrestricted egress",
		Predicate: func(d domain.ResourceDescriptor, _ Settings) (bool, error) {
			groups, err := openEgressGroups(d)
			return len(groups) > 0, err
		},
		Detail: func(d domain.ResourceDescriptor, _ Settings) (map[string]any, error) {
			groups, err := openEgressGroups(d)
			if err != nil {
				return nil, err
			}
			return map[string]any{"security_groups": groups}, nil
		},
	}
}

// openEgressGroups returns the ids of groups with a 0.0.0.0/0 egress rule.
func openEgressGroups(d domain.ResourceDescriptor) ([]string, error) {
	groups, err := d.SecurityGroups()
	if err != nil {
		return nil, err
	}
	var open []string
	for _, g := range groups {
		for _, rule := range g.Egress {
			if slices.Contains(rule.CIDRs, openIPv4) {
				open = append(open, g.ID)
				break
			}
		}
	}
	return open, nil
}

func encryptionAtRestRule(t domain.ResourceType) Rule {
	return Rule{
		Name:        EncryptionAtRestAbsent,
		AppliesTo:   t,
		Severity:    domain.SeverityHigh,
		Description: "Data is not encrypted at rest",
		Predicate: func(d domain.ResourceDescriptor, _ Settings) (bool, error) {
			encrypted, err := d.Bool(domain.AttrEncrypted)
			return !encrypted, err
		},
		Detail: func(d domain.ResourceDescriptor, _ Settings) (map[string]any, error) {
			detail := map[string]any{"encrypted": false}
			if region, ok := d.String(domain.AttrRegion); ok {
				detail["region"] = region
			}
			return detail, nil
		},
	}
}
