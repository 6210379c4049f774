package config

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// ErrLoadingAWSConfigFailed is returned when the AWS SDK configuration cannot be resolved.
var ErrLoadingAWSConfigFailed = errors.New("loading aws config failed")

// AWSConfig resolves the AWS SDK configuration from the default chain, pinned to Region when set.
// CloudServicesEndpoint is applied by the service clients, see sqsgateway.NewClient and s3store.NewClient.
func (c Config) AWSConfig(ctx context.Context) (aws.Config, error) {
	var options []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		options = append(options, awsconfig.WithRegion(c.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return aws.Config{}, errors.Join(ErrLoadingAWSConfigFailed, err)
	}

	return cfg, nil
}
