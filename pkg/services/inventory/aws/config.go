package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

const (
	DefaultRegion = "us-east-1" // Default region if neither flag nor profile sets one
)

// LoadConfig resolves the shared config for profile and verifies that
// credentials can be retrieved. Failures wrap domain.ErrSetup.
func LoadConfig(ctx context.Context, profile, region string) (awssdk.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithDefaultRegion(DefaultRegion),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("%w: unable to load AWS SDK config: %w", domain.ErrSetup, err)
	}

	// Test the credentials
	_, err = awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("%w: invalid AWS credentials for profile %q: %w", domain.ErrSetup, profile, err)
	}

	return awsCfg, nil
}
