package rules

import (
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// Predicate reports whether the descriptor fails the rule. Predicates must be
// pure: no I/O and no mutation of the descriptor.
type Predicate func(d domain.ResourceDescriptor, s Settings) (bool, error)

// DetailFunc describes why a failing descriptor failed.
type DetailFunc func(d domain.ResourceDescriptor, s Settings) (map[string]any, error)

type Rule struct {
	Name        string
	AppliesTo   domain.ResourceType
	Severity    domain.Severity
	Description string
	Predicate   Predicate
	Detail      DetailFunc
}

// Check runs the predicate and, when it fails, the detail function.
func (r Rule) Check(d domain.ResourceDescriptor, s Settings) (failed bool, detail map[string]any, err error) {
	failed, err = r.Predicate(d, s)
	if err != nil || !failed {
		return false, nil, err
	}
	if r.Detail == nil {
		return true, map[string]any{}, nil
	}
	detail, err = r.Detail(d, s)
	if err != nil {
		return false, nil, err
	}
	if detail == nil {
		detail = map[string]any{}
	}
	return true, detail, nil
}
