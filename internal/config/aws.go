package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// SDKConfig loads the AWS SDK configuration for region, falling back to
// the configured region. A profile selects shared credentials; otherwise
// the default chain (env, IAM role) is used.
func (c AWSConfig) SDKConfig(ctx context.Context, region string) (aws.Config, error) {
	if region == "" {
		region = c.Region
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile := c.GetProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}
