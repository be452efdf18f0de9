package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/inventory"
	"github.com/rs/zerolog"
)

// NewSources builds one inventory source per requested resource type.
func NewSources(cfg awssdk.Config, types ...domain.ResourceType) []inventory.Source {
	if len(types) == 0 {
		types = domain.ResourceTypes
	}

	ec2Client := ec2.NewFromConfig(cfg)
	groups := NewSecurityGroupResolver(ec2Client)

	var sources []inventory.Source
	for _, t := range types {
		switch t {
		case domain.ResourceTypeFunction:
			sources = append(sources, NewFunctionSource(lambda.NewFromConfig(cfg), groups, cfg.Region))
		case domain.ResourceTypeBucket:
			sources = append(sources, NewBucketSource(s3.NewFromConfig(cfg), cfg.Region))
		case domain.ResourceTypeDatabase:
			sources = append(sources, NewDatabaseSource(rds.NewFromConfig(cfg), cfg.Region))
		case domain.ResourceTypeInstance:
			sources = append(sources, NewInstanceSource(ec2Client, groups, cfg.Region))
		}
	}
	return sources
}

// unresolved logs a failed per-resource lookup and marks key as unresolved
// on attrs. The descriptor is still emitted.
func unresolved(ctx context.Context, attrs map[string]any, t domain.ResourceType, id, key string, err error) {
	zerolog.Ctx(ctx).Warn().
		Err(err).
		Str("resource_type", t.String()).
		Str("resource_id", id).
		Str("attribute", key).
		Msg("attribute lookup failed")

	keys, _ := attrs[domain.AttrUnresolved].([]string)
	attrs[domain.AttrUnresolved] = append(keys, key)
}
