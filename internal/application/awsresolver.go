package application

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
)

// defaultConfigKey keys the memoized anonymous configuration inside each
// resolver's ClientCache.
const defaultConfigKey = "default"

// AWSResolver turns an optional user identity into a ready-to-use AWS SDK
// configuration. A stored user credential wins over the default chain; a
// malformed stored credential falls through to the default chain. Resolution
// is stateless per call except for the memoized anonymous configuration.
type AWSResolver struct {
	creds    *CredentialService
	source   driven.AWSConfigSource
	region   string
	defaults *ClientCache[aws.Config]
}

// NewAWSResolver creates an AWSResolver. region is the process-wide default
// region used when neither the user credential nor the environment names one.
func NewAWSResolver(creds *CredentialService, source driven.AWSConfigSource, region string) *AWSResolver {
	return &AWSResolver{
		creds:    creds,
		source:   source,
		region:   region,
		defaults: NewClientCache[aws.Config](),
	}
}

// Resolve returns a configuration for the given user, or for the anonymous
// default chain when userID is empty. User configurations are built fresh on
// every call and never memoized.
func (r *AWSResolver) Resolve(ctx context.Context, userID string) (aws.Config, error) {
	if userID != "" {
		cred, err := r.creds.AWS(ctx, userID)
		if err != nil {
			return aws.Config{}, err
		}
		if cred != nil {
			return r.source.FromCredential(ctx, *cred)
		}
	}

	return r.defaults.GetOrCreate(defaultConfigKey, func() (aws.Config, error) {
		return r.source.FromDefaults(ctx)
	})
}

// ResolveRegion returns the region for the given user with the same
// precedence as Resolve: stored credential region, then the process default.
// Returns "" rather than an error when no region is known.
func (r *AWSResolver) ResolveRegion(ctx context.Context, userID string) (string, error) {
	if userID != "" {
		cred, err := r.creds.AWS(ctx, userID)
		if err != nil {
			return "", err
		}
		if cred != nil && cred.Region != "" {
			return cred.Region, nil
		}
	}

	return r.region, nil
}
