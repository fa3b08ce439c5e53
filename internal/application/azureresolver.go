package application

import (
	"context"

	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
)

// AzureResolver turns an optional user identity into a ready-to-use Azure
// client configuration, with the same precedence rules as AWSResolver.
type AzureResolver struct {
	creds          *CredentialService
	source         driven.AzureConfigSource
	subscriptionID string
	defaults       *ClientCache[driven.AzureClientConfig]
}

// NewAzureResolver creates an AzureResolver. subscriptionID is the
// process-wide default subscription for anonymous resolutions.
func NewAzureResolver(creds *CredentialService, source driven.AzureConfigSource, subscriptionID string) *AzureResolver {
	return &AzureResolver{
		creds:          creds,
		source:         source,
		subscriptionID: subscriptionID,
		defaults:       NewClientCache[driven.AzureClientConfig](),
	}
}

// Resolve returns a configuration for the given user, or for the anonymous
// default chain when userID is empty. User configurations are built fresh on
// every call and never memoized.
func (r *AzureResolver) Resolve(ctx context.Context, userID string) (driven.AzureClientConfig, error) {
	if userID != "" {
		cred, err := r.creds.Azure(ctx, userID)
		if err != nil {
			return driven.AzureClientConfig{}, err
		}
		if cred != nil {
			return r.source.FromCredential(ctx, *cred)
		}
	}

	return r.defaults.GetOrCreate(defaultConfigKey, func() (driven.AzureClientConfig, error) {
		return r.source.FromDefaults(ctx)
	})
}

// ResolveSubscriptionID returns the subscription for the given user: stored
// credential value, then the process default. Returns "" rather than an
// error when no subscription is known.
func (r *AzureResolver) ResolveSubscriptionID(ctx context.Context, userID string) (string, error) {
	if userID != "" {
		cred, err := r.creds.Azure(ctx, userID)
		if err != nil {
			return "", err
		}
		if cred != nil {
			return cred.SubscriptionID, nil
		}
	}

	return r.subscriptionID, nil
}
