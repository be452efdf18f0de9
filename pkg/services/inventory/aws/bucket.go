package aws

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/inventory"
)

type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	GetBucketEncryption(ctx context.Context, params *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
}

const (
	errNoEncryption = "ServerSideEncryptionConfigurationNotFoundError"
	errNoTagSet     = "NoSuchTagSet"
)

// bucketSource lists the buckets located in region. ListBuckets is global and
// unpaginated, so every listing is a single page.
type bucketSource struct {
	client S3API
	region string
}

func NewBucketSource(client S3API, region string) inventory.Source {
	return &bucketSource{client: client, region: region}
}

func (s *bucketSource) ResourceType() domain.ResourceType {
	return domain.ResourceTypeBucket
}

func (s *bucketSource) List(ctx context.Context, _ *string) (inventory.Page, error) {
	resp, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return inventory.Page{}, fmt.Errorf("failed to list S3 buckets: %w", err)
	}

	var page inventory.Page
	for _, bucket := range resp.Buckets {
		name := awssdk.ToString(bucket.Name)
		attrs := map[string]any{domain.AttrARN: "arn:aws:s3:::" + name}

		// A bucket whose location cannot be read is kept without a region.
		location, err := s.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: bucket.Name})
		if err != nil {
			unresolved(ctx, attrs, domain.ResourceTypeBucket, name, domain.AttrRegion, err)
		} else {
			region := bucketRegion(location.LocationConstraint)
			if s.region != "" && region != s.region {
				continue
			}
			attrs[domain.AttrRegion] = region
		}

		s.attributes(ctx, name, attrs)
		page.Resources = append(page.Resources, domain.NewResourceDescriptor(domain.ResourceTypeBucket, name, attrs))
	}
	return page, nil
}

// bucketRegion maps a location constraint to its region. Buckets in
// us-east-1 report no constraint and legacy eu-west-1 buckets report "EU".
func bucketRegion(c types.BucketLocationConstraint) string {
	switch c {
	case "":
		return "us-east-1"
	case types.BucketLocationConstraintEu:
		return "eu-west-1"
	default:
		return string(c)
	}
}

func (s *bucketSource) attributes(ctx context.Context, name string, attrs map[string]any) {
	bucket := awssdk.String(name)

	encryption, err := s.client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: bucket})
	switch {
	case isAPIError(err, errNoEncryption):
		attrs[domain.AttrEncrypted] = false
	case err != nil:
		unresolved(ctx, attrs, domain.ResourceTypeBucket, name, domain.AttrEncrypted, err)
	default:
		attrs[domain.AttrEncrypted] = encryption.ServerSideEncryptionConfiguration != nil &&
			len(encryption.ServerSideEncryptionConfiguration.Rules) > 0
	}

	versioning, err := s.client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: bucket})
	if err != nil {
		unresolved(ctx, attrs, domain.ResourceTypeBucket, name, domain.AttrVersioningEnabled, err)
	} else {
		attrs[domain.AttrVersioningEnabled] = versioning.Status == types.BucketVersioningStatusEnabled
	}

	tagging, err := s.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: bucket})
	switch {
	case isAPIError(err, errNoTagSet):
		attrs[domain.AttrTags] = map[string]string{}
	case err != nil:
		unresolved(ctx, attrs, domain.ResourceTypeBucket, name, domain.AttrTags, err)
	default:
		tags := make(map[string]string, len(tagging.TagSet))
		for _, tag := range tagging.TagSet {
			tags[awssdk.ToString(tag.Key)] = awssdk.ToString(tag.Value)
		}
		attrs[domain.AttrTags] = tags
	}
}

func isAPIError(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
