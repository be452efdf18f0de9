package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/inventory"
)

type instanceSource struct {
	client EC2API
	groups *SecurityGroupResolver
	region string
}

func NewInstanceSource(client EC2API, groups *SecurityGroupResolver, region string) inventory.Source {
	return &instanceSource{client: client, groups: groups, region: region}
}

func (s *instanceSource) ResourceType() domain.ResourceType {
	return domain.ResourceTypeInstance
}

func (s *instanceSource) List(ctx context.Context, token *string) (inventory.Page, error) {
	resp, err := s.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		NextToken: token,
		Filters: []types.Filter{
			{
				Name:   awssdk.String("instance-state-name"),
				Values: []string{"pending", "running", "stopping", "stopped"},
			},
		},
	})
	if err != nil {
		return inventory.Page{}, fmt.Errorf("failed to describe EC2 instances: %w", err)
	}

	page := inventory.Page{NextToken: resp.NextToken}
	for _, reservation := range resp.Reservations {
		for _, instance := range reservation.Instances {
			page.Resources = append(page.Resources, s.describe(ctx, instance))
		}
	}
	return page, nil
}

func (s *instanceSource) describe(ctx context.Context, instance types.Instance) domain.ResourceDescriptor {
	id := awssdk.ToString(instance.InstanceId)

	tags := make(map[string]string, len(instance.Tags))
	for _, tag := range instance.Tags {
		tags[awssdk.ToString(tag.Key)] = awssdk.ToString(tag.Value)
	}
	attrs := map[string]any{
		domain.AttrRegion: s.region,
		domain.AttrTags:   tags,
	}

	var groupIDs []string
	for _, g := range instance.SecurityGroups {
		groupIDs = append(groupIDs, awssdk.ToString(g.GroupId))
	}
	if groups, err := s.groups.Resolve(ctx, groupIDs); err != nil {
		unresolved(ctx, attrs, domain.ResourceTypeInstance, id, domain.AttrSecurityGroups, err)
	} else {
		attrs[domain.AttrSecurityGroups] = groups
	}

	if volumes, err := s.volumes(ctx, instance); err != nil {
		unresolved(ctx, attrs, domain.ResourceTypeInstance, id, domain.AttrVolumes, err)
	} else {
		attrs[domain.AttrVolumes] = volumes
	}

	return domain.NewResourceDescriptor(domain.ResourceTypeInstance, id, attrs)
}

func (s *instanceSource) volumes(ctx context.Context, instance types.Instance) ([]domain.Volume, error) {
	var ids []string
	for _, m := range instance.BlockDeviceMappings {
		if m.Ebs != nil && m.Ebs.VolumeId != nil {
			ids = append(ids, *m.Ebs.VolumeId)
		}
	}
	if len(ids) == 0 {
		return []domain.Volume{}, nil
	}

	resp, err := s.client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{VolumeIds: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to describe volumes: %w", err)
	}
	volumes := make([]domain.Volume, 0, len(resp.Volumes))
	for _, v := range resp.Volumes {
		volumes = append(volumes, domain.Volume{
			ID:        awssdk.ToString(v.VolumeId),
			Encrypted: awssdk.ToBool(v.Encrypted),
		})
	}
	return volumes, nil
}
