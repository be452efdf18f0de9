package domain

import (
	"fmt"
	"maps"
	"strings"
)

type ResourceType string

const (
	ResourceTypeFunction ResourceType = "function"
	ResourceTypeBucket   ResourceType = "bucket"
	ResourceTypeDatabase ResourceType = "database"
	ResourceTypeInstance ResourceType = "instance"
)

// ResourceTypes lists every supported resource type in canonical scan order.
var ResourceTypes = []ResourceType{
	ResourceTypeFunction,
	ResourceTypeBucket,
	ResourceTypeDatabase,
	ResourceTypeInstance,
}

func (t ResourceType) String() string {
	return string(t)
}

func (t ResourceType) Valid() bool {
	for _, known := range ResourceTypes {
		if t == known {
			return true
		}
	}
	return false
}

func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedResourceType, s)
	}
	return t, nil
}

// Attribute keys understood by the rule catalog.
const (
	AttrARN                 = "arn"
	AttrRegion              = "region"
	AttrMemoryMB            = "memory_mb"
	AttrTimeoutSeconds      = "timeout_seconds"
	AttrRuntime             = "runtime"
	AttrEnvironment         = "environment"
	AttrKMSKeyARN           = "kms_key_arn"
	AttrSecurityGroups      = "security_groups"
	AttrTags                = "tags"
	AttrEncrypted           = "encrypted"
	AttrVersioningEnabled   = "versioning_enabled"
	AttrBackupRetentionDays = "backup_retention_days"
	AttrPubliclyAccessible  = "publicly_accessible"
	AttrEngine              = "engine"
	AttrVolumes             = "volumes"
	// AttrUnresolved lists attribute keys the inventory failed to collect.
	AttrUnresolved = "unresolved_attributes"
)

// ResourceDescriptor is a snapshot of the attributes of one cloud resource
// taken at enumeration time. Accessors never mutate the attribute map.
type ResourceDescriptor struct {
	Type       ResourceType   `json:"resource_type"`
	ID         string         `json:"resource_id"`
	Attributes map[string]any `json:"attributes"`
}

func NewResourceDescriptor(t ResourceType, id string, attributes map[string]any) ResourceDescriptor {
	attrs := maps.Clone(attributes)
	if attrs == nil {
		attrs = map[string]any{}
	}
	return ResourceDescriptor{
		Type:       t,
		ID:         id,
		Attributes: attrs,
	}
}

type SecurityGroup struct {
	ID     string       `json:"id"`
	Name   string       `json:"name,omitempty"`
	Egress []EgressRule `json:"egress"`
}

type EgressRule struct {
	Protocol  string   `json:"protocol"`
	FromPort  int32    `json:"from_port"`
	ToPort    int32    `json:"to_port"`
	CIDRs     []string `json:"cidrs,omitempty"`
	IPv6CIDRs []string `json:"ipv6_cidrs,omitempty"`
}

type Volume struct {
	ID        string `json:"id"`
	Encrypted bool   `json:"encrypted"`
}
