package aws

import (
	"context"
	"fmt"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
}

// SecurityGroupResolver looks up security groups by id and caches them for
// the lifetime of a scan. Functions and instances share one resolver.
type SecurityGroupResolver struct {
	client EC2API
	mu     sync.Mutex
	cache  map[string]domain.SecurityGroup
}

func NewSecurityGroupResolver(client EC2API) *SecurityGroupResolver {
	return &SecurityGroupResolver{
		client: client,
		cache:  make(map[string]domain.SecurityGroup),
	}
}

// Resolve returns the groups in the order of ids.
func (r *SecurityGroupResolver) Resolve(ctx context.Context, ids []string) ([]domain.SecurityGroup, error) {
	r.mu.Lock()
	var missing []string
	for _, id := range ids {
		if _, ok := r.cache[id]; !ok {
			missing = append(missing, id)
		}
	}
	r.mu.Unlock()

	if len(missing) > 0 {
		resp, err := r.client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{GroupIds: missing})
		if err != nil {
			return nil, fmt.Errorf("failed to describe security groups: %w", err)
		}
		r.mu.Lock()
		for _, sg := range resp.SecurityGroups {
			r.cache[awssdk.ToString(sg.GroupId)] = toSecurityGroup(sg)
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	groups := make([]domain.SecurityGroup, 0, len(ids))
	for _, id := range ids {
		sg, ok := r.cache[id]
		if !ok {
			return nil, fmt.Errorf("security group %s not found", id)
		}
		groups = append(groups, sg)
	}
	return groups, nil
}

func toSecurityGroup(sg types.SecurityGroup) domain.SecurityGroup {
	out := domain.SecurityGroup{
		ID:   awssdk.ToString(sg.GroupId),
		Name: awssdk.ToString(sg.GroupName),
	}
	for _, perm := range sg.IpPermissionsEgress {
		rule := domain.EgressRule{
			Protocol: awssdk.ToString(perm.IpProtocol),
			FromPort: awssdk.ToInt32(perm.FromPort),
			ToPort:   awssdk.ToInt32(perm.ToPort),
		}
		for _, r := range perm.IpRanges {
			rule.CIDRs = append(rule.CIDRs, awssdk.ToString(r.CidrIp))
		}
		for _, r := range perm.Ipv6Ranges {
			rule.IPv6CIDRs = append(rule.IPv6CIDRs, awssdk.ToString(r.CidrIpv6))
		}
		out.Egress = append(out.Egress, rule)
	}
	return out
}
