package rules

import (
	"fmt"
	"slices"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// Catalog is the ordered set of rules registered per resource type.
type Catalog struct {
	settings Settings
	byType   map[domain.ResourceType][]Rule
	names    []string
}

func NewCatalog(settings Settings, rules ...Rule) (*Catalog, error) {
	c := &Catalog{
		settings: settings,
		byType:   make(map[domain.ResourceType][]Rule),
	}

	seen := make(map[domain.ResourceType]map[string]struct{})
	for _, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule name is required")
		}
		if !r.AppliesTo.Valid() {
			return nil, fmt.Errorf("rule %s: %w: %q", r.Name, domain.ErrUnsupportedResourceType, r.AppliesTo)
		}
		if r.Predicate == nil {
			return nil, fmt.Errorf("rule %s has no predicate", r.Name)
		}
		if seen[r.AppliesTo] == nil {
			seen[r.AppliesTo] = make(map[string]struct{})
		}
		if _, exists := seen[r.AppliesTo][r.Name]; exists {
			return nil, fmt.Errorf("duplicate rule %s for resource type: %s", r.Name, r.AppliesTo)
		}
		seen[r.AppliesTo][r.Name] = struct{}{}

		c.byType[r.AppliesTo] = append(c.byType[r.AppliesTo], r)
		if !slices.Contains(c.names, r.Name) {
			c.names = append(c.names, r.Name)
		}
	}

	if len(c.names) == 0 {
		return nil, fmt.Errorf("at least one rule must be provided")
	}

	return c, nil
}

// Default returns the seed catalog.
func Default(settings Settings) *Catalog {
	c, err := NewCatalog(settings, Seed()...)
	if err != nil {
		panic(fmt.Sprintf("seed catalog is invalid: %v", err))
	}
	return c
}

func Seed() []Rule {
	var out []Rule
	out = append(out, FunctionRules()...)
	out = append(out, BucketRules()...)
	out = append(out, DatabaseRules()...)
	out = append(out, InstanceRules()...)
	return out
}

func (c *Catalog) Settings() Settings {
	return c.settings
}

// For returns the rules for t in evaluation order.
func (c *Catalog) For(t domain.ResourceType) []Rule {
	return c.byType[t]
}

// Categories returns every declared rule name in first-registration order.
func (c *Catalog) Categories() []string {
	return slices.Clone(c.names)
}

func (c *Catalog) Has(category string) bool {
	return slices.Contains(c.names, category)
}

// Types returns the resource types that have at least one rule, in canonical order.
func (c *Catalog) Types() []domain.ResourceType {
	var out []domain.ResourceType
	for _, t := range domain.ResourceTypes {
		if len(c.byType[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Only narrows the catalog to the named rules.
func (c *Catalog) Only(names ...string) (*Catalog, error) {
	var selected []Rule
	for _, t := range domain.ResourceTypes {
		for _, r := range c.byType[t] {
			if slices.Contains(names, r.Name) {
				selected = append(selected, r)
			}
		}
	}
	for _, name := range names {
		if !c.Has(name) {
			return nil, fmt.Errorf("unknown rule: %s", name)
		}
	}
	return NewCatalog(c.settings, selected...)
}

func (c *Catalog) Rule(t domain.ResourceType, name string) (Rule, bool) {
	for _, r := range c.byType[t] {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

func (c *Catalog) Severity(t domain.ResourceType, name string) (domain.Severity, bool) {
	r, ok := c.Rule(t, name)
	return r.Severity, ok
}
