// Package cloud implements the provider client-configuration sources on the
// real cloud SDKs: static configurations built from stored user credentials,
// and each SDK's ambient default-credential chain.
package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AWSConfigSource = (*AWSSource)(nil)

// AWSSource builds AWS SDK configurations.
type AWSSource struct {
	defaultRegion string
}

// NewAWSSource creates an AWSSource. defaultRegion is used whenever a stored
// credential carries no region of its own.
func NewAWSSource(defaultRegion string) *AWSSource {
	return &AWSSource{defaultRegion: defaultRegion}
}

// FromCredential builds a configuration from a stored user credential using
// a static credentials provider.
func (s *AWSSource) FromCredential(ctx context.Context, cred model.AWSCredential) (aws.Config, error) {
	region := cred.Region
	if region == "" {
		region = s.defaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cred.AccessKeyID, cred.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}

	return cfg, nil
}

// FromDefaults builds a configuration from the SDK's default chain
// (environment, shared config files, IMDS). It verifies that the chain can
// actually produce credentials; otherwise the configuration would fail only
// on first use, long after resolution.
func (s *AWSSource) FromDefaults(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.defaultRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws default config: %w", err)
	}

	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return aws.Config{}, fmt.Errorf("aws default chain: %w", driven.ErrCredentialsNotConfigured)
	}

	return cfg, nil
}
