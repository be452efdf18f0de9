package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/inventory"
)

type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

type databaseSource struct {
	client RDSAPI
	region string
}

func NewDatabaseSource(client RDSAPI, region string) inventory.Source {
	return &databaseSource{client: client, region: region}
}

func (s *databaseSource) ResourceType() domain.ResourceType {
	return domain.ResourceTypeDatabase
}

func (s *databaseSource) List(ctx context.Context, token *string) (inventory.Page, error) {
	resp, err := s.client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		Marker:     token,
		MaxRecords: awssdk.Int32(100),
	})
	if err != nil {
		return inventory.Page{}, fmt.Errorf("failed to describe RDS instances: %w", err)
	}

	page := inventory.Page{NextToken: resp.Marker}
	for _, instance := range resp.DBInstances {
		tags := make(map[string]string, len(instance.TagList))
		for _, tag := range instance.TagList {
			tags[awssdk.ToString(tag.Key)] = awssdk.ToString(tag.Value)
		}

		page.Resources = append(page.Resources, domain.NewResourceDescriptor(
			domain.ResourceTypeDatabase,
			awssdk.ToString(instance.DBInstanceIdentifier),
			map[string]any{
				domain.AttrARN:                 awssdk.ToString(instance.DBInstanceArn),
				domain.AttrRegion:              s.region,
				domain.AttrEngine:              awssdk.ToString(instance.Engine),
				domain.AttrEncrypted:           awssdk.ToBool(instance.StorageEncrypted),
				domain.AttrBackupRetentionDays: int(awssdk.ToInt32(instance.BackupRetentionPeriod)),
				domain.AttrPubliclyAccessible:  awssdk.ToBool(instance.PubliclyAccessible),
				domain.AttrTags:                tags,
			},
		))
	}
	return page, nil
}
