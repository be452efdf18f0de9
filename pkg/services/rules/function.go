package rules

import (
	"slices"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

func FunctionRules() []Rule {
	return []Rule{
		{
			Name:        OverProvisioned,
			AppliesTo:   domain.ResourceTypeFunction,
			Severity:    domain.SeverityMedium,
			Description: "Memory is above the ceiling while the timeout is below the floor",
			Predicate:   overProvisioned,
			Detail: func(d domain.ResourceDescriptor, s Settings) (map[string]any, error) {
				memory, err := d.Int(domain.AttrMemoryMB)
				if err != nil {
					return nil, err
				}
				timeout, err := d.Int(domain.AttrTimeoutSeconds)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"memory_mb":       memory,
					"timeout_seconds": timeout,
				}, nil
			},
		},
		{
			Name:        UnencryptedEnvironment,
			AppliesTo:   domain.ResourceTypeFunction,
			Severity:    domain.SeverityHigh,
			Description: "Environment variables are set without a customer-managed KMS key",
			Predicate:   unencryptedEnvironment,
			Detail: func(d domain.ResourceDescriptor, _ Settings) (map[string]any, error) {
				env, err := environment(d)
				if err != nil {
					return nil, err
				}
				return map[string]any{"environment_variables": len(env)}, nil
			},
		},
		riskyEgressRule(domain.ResourceTypeFunction),
		{
			Name:        DeprecatedRuntime,
			AppliesTo:   domain.ResourceTypeFunction,
			Severity:    domain.SeverityMedium,
			Description: "Runtime has reached end of support",
			Predicate: func(d domain.ResourceDescriptor, s Settings) (bool, error) {
				runtime, ok := d.String(domain.AttrRuntime)
				if !ok {
					// container image functions have no runtime
					return false, nil
				}
				return slices.Contains(s.DeprecatedRuntimes, runtime), nil
			},
			Detail: func(d domain.ResourceDescriptor, _ Settings) (map[string]any, error) {
				runtime, _ := d.String(domain.AttrRuntime)
				return map[string]any{"runtime": runtime}, nil
			},
		},
		missingTagsRule(domain.ResourceTypeFunction),
	}
}

func overProvisioned(d domain.ResourceDescriptor, s Settings) (bool, error) {
	memory, err := d.Int(domain.AttrMemoryMB)
	if err != nil {
		return false, err
	}
	timeout, err := d.Int(domain.AttrTimeoutSeconds)
	if err != nil {
		return false, err
	}
	return memory > s.MemoryCeilingMB && timeout < s.TimeoutFloorSeconds, nil
}

func unencryptedEnvironment(d domain.ResourceDescriptor, _ Settings) (bool, error) {
	env, err := environment(d)
	if err != nil {
		return false, err
	}
	if len(env) == 0 {
		return false, nil
	}
	key, _ := d.String(domain.AttrKMSKeyARN)
	return key == "", nil
}

// environment treats an absent or null attribute as no variables.
func environment(d domain.ResourceDescriptor) (map[string]string, error) {
	if d.Attributes[domain.AttrEnvironment] == nil {
		return nil, nil
	}
	return d.StringMap(domain.AttrEnvironment)
}
