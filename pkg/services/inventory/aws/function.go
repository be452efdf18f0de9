package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/inventory"
)

type LambdaAPI interface {
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
	ListTags(ctx context.Context, params *lambda.ListTagsInput, optFns ...func(*lambda.Options)) (*lambda.ListTagsOutput, error)
}

type functionSource struct {
	client LambdaAPI
	groups *SecurityGroupResolver
	region string
}

func NewFunctionSource(client LambdaAPI, groups *SecurityGroupResolver, region string) inventory.Source {
	return &functionSource{client: client, groups: groups, region: region}
}

func (s *functionSource) ResourceType() domain.ResourceType {
	return domain.ResourceTypeFunction
}

func (s *functionSource) List(ctx context.Context, token *string) (inventory.Page, error) {
	resp, err := s.client.ListFunctions(ctx, &lambda.ListFunctionsInput{
		Marker:   token,
		MaxItems: awssdk.Int32(50),
	})
	if err != nil {
		return inventory.Page{}, fmt.Errorf("failed to list lambda functions: %w", err)
	}

	page := inventory.Page{NextToken: resp.NextMarker}
	for _, fn := range resp.Functions {
		name := awssdk.ToString(fn.FunctionName)
		attrs := map[string]any{
			domain.AttrARN:            awssdk.ToString(fn.FunctionArn),
			domain.AttrRegion:         s.region,
			domain.AttrMemoryMB:       int(awssdk.ToInt32(fn.MemorySize)),
			domain.AttrTimeoutSeconds: int(awssdk.ToInt32(fn.Timeout)),
		}

		tags, err := s.client.ListTags(ctx, &lambda.ListTagsInput{Resource: fn.FunctionArn})
		if err != nil {
			unresolved(ctx, attrs, domain.ResourceTypeFunction, name, domain.AttrTags, err)
		} else {
			attrs[domain.AttrTags] = nonNilTags(tags.Tags)
		}
		if fn.Runtime != "" {
			attrs[domain.AttrRuntime] = string(fn.Runtime)
		}
		if fn.Environment != nil && len(fn.Environment.Variables) > 0 {
			attrs[domain.AttrEnvironment] = fn.Environment.Variables
		}
		if fn.KMSKeyArn != nil {
			attrs[domain.AttrKMSKeyARN] = *fn.KMSKeyArn
		}
		if fn.VpcConfig != nil && len(fn.VpcConfig.SecurityGroupIds) > 0 {
			groups, err := s.groups.Resolve(ctx, fn.VpcConfig.SecurityGroupIds)
			if err != nil {
				unresolved(ctx, attrs, domain.ResourceTypeFunction, name, domain.AttrSecurityGroups, err)
			} else {
				attrs[domain.AttrSecurityGroups] = groups
			}
		}

		page.Resources = append(page.Resources, domain.NewResourceDescriptor(domain.ResourceTypeFunction, name, attrs))
	}
	return page, nil
}

func nonNilTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	return tags
}
