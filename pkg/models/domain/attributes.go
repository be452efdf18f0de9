package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

func (d ResourceDescriptor) Has(key string) bool {
	_, ok := d.Attributes[key]
	return ok
}

// Unresolved reports whether collecting key failed during enumeration.
func (d ResourceDescriptor) Unresolved(key string) bool {
	switch keys := d.Attributes[AttrUnresolved].(type) {
	case []string:
		return slices.Contains(keys, key)
	case []any:
		return slices.Contains(keys, any(key))
	}
	return false
}

func (d ResourceDescriptor) lookup(key string) (any, error) {
	v, ok := d.Attributes[key]
	if !ok || v == nil || d.Unresolved(key) {
		return nil, d.missing(key)
	}
	return v, nil
}

func (d ResourceDescriptor) missing(key string) error {
	return fmt.Errorf("%w: %s on %s %s", ErrMissingAttribute, key, d.Type, d.ID)
}

func (d ResourceDescriptor) Int(key string) (int, error) {
	v, err := d.lookup(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("attribute %s is not an integer: %v", key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("attribute %s: %w", key, err)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("attribute %s has type %T, expected integer", key, v)
	}
}

func (d ResourceDescriptor) Bool(key string) (bool, error) {
	v, err := d.lookup(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("attribute %s has type %T, expected bool", key, v)
	}
	return b, nil
}

// String returns the attribute as a string. Absent attributes yield "" and false.
func (d ResourceDescriptor) String(key string) (string, bool) {
	v, ok := d.Attributes[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (d ResourceDescriptor) StringMap(key string) (map[string]string, error) {
	v, err := d.lookup(key)
	if err != nil {
		return nil, err
	}
	return decodeAttribute[map[string]string](key, v)
}

// SecurityGroups treats an absent attribute as no attached groups unless the
// lookup was marked unresolved.
func (d ResourceDescriptor) SecurityGroups() ([]SecurityGroup, error) {
	if d.Unresolved(AttrSecurityGroups) {
		return nil, d.missing(AttrSecurityGroups)
	}
	v, ok := d.Attributes[AttrSecurityGroups]
	if !ok || v == nil {
		return nil, nil
	}
	return decodeAttribute[[]SecurityGroup](AttrSecurityGroups, v)
}

func (d ResourceDescriptor) Volumes() ([]Volume, error) {
	v, err := d.lookup(AttrVolumes)
	if err != nil {
		return nil, err
	}
	return decodeAttribute[[]Volume](AttrVolumes, v)
}

// decodeAttribute accepts either the native Go type or the generic shape
// produced by decoding a descriptor from JSON.
func decodeAttribute[T any](key string, v any) (T, error) {
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("attribute %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("attribute %s has unexpected shape: %w", key, err)
	}
	return out, nil
}
