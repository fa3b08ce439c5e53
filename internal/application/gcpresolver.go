package application

import (
	"context"

	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
)

// GCPResolver turns an optional user identity into ready-to-use GCP client
// options, with the same precedence rules as AWSResolver.
type GCPResolver struct {
	creds     *CredentialService
	source    driven.GCPConfigSource
	projectID string
	defaults  *ClientCache[driven.GCPClientConfig]
}

// NewGCPResolver creates a GCPResolver. projectID is the process-wide
// default project for anonymous resolutions.
func NewGCPResolver(creds *CredentialService, source driven.GCPConfigSource, projectID string) *GCPResolver {
	return &GCPResolver{
		creds:     creds,
		source:    source,
		projectID: projectID,
		defaults:  NewClientCache[driven.GCPClientConfig](),
	}
}

// Resolve returns a configuration for the given user, or for the anonymous
// default chain when userID is empty. User configurations are built fresh on
// every call and never memoized.
func (r *GCPResolver) Resolve(ctx context.Context, userID string) (driven.GCPClientConfig, error) {
	if userID != "" {
		cred, err := r.creds.GCP(ctx, userID)
		if err != nil {
			return driven.GCPClientConfig{}, err
		}
		if cred != nil {
			return r.source.FromCredential(ctx, *cred)
		}
	}

	return r.defaults.GetOrCreate(defaultConfigKey, func() (driven.GCPClientConfig, error) {
		return r.source.FromDefaults(ctx)
	})
}

// ResolveProjectID returns the project for the given user: stored credential
// value, then the configured default, then the project discovered by the
// default-credential chain. Returns "" rather than an error when no project
// can be determined, since project id is optional context for most callers.
func (r *GCPResolver) ResolveProjectID(ctx context.Context, userID string) (string, error) {
	if userID != "" {
		cred, err := r.creds.GCP(ctx, userID)
		if err != nil {
			return "", err
		}
		if cred != nil {
			return cred.ProjectID, nil
		}
	}

	if r.projectID != "" {
		return r.projectID, nil
	}

	cfg, err := r.defaults.GetOrCreate(defaultConfigKey, func() (driven.GCPClientConfig, error) {
		return r.source.FromDefaults(ctx)
	})
	if err != nil {
		// Discovery may require ambient credentials; absence is not an error here.
		return "", nil
	}

	return cfg.ProjectID, nil
}
