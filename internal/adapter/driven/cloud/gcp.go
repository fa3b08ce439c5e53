package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
)

const gcpScope = "https://www.googleapis.com/auth/cloud-platform"

// Compile-time interface satisfaction check.
var _ driven.GCPConfigSource = (*GCPSource)(nil)

// GCPSource builds GCP client configurations.
type GCPSource struct {
	defaultProjectID string
}

// NewGCPSource creates a GCPSource. defaultProjectID (typically
// GCP_PROJECT_ID) overrides project discovery on the default path.
func NewGCPSource(defaultProjectID string) *GCPSource {
	return &GCPSource{defaultProjectID: defaultProjectID}
}

// FromCredential builds client options from a stored user credential by
// synthesizing a service-account JSON key for the SDK.
func (s *GCPSource) FromCredential(ctx context.Context, cred model.GCPCredential) (driven.GCPClientConfig, error) {
	key, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   cred.ProjectID,
		"client_email": cred.ServiceAccountEmail,
		"private_key":  cred.PrivateKey,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return driven.GCPClientConfig{}, fmt.Errorf("marshal service account key: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, key, gcpScope)
	if err != nil {
		return driven.GCPClientConfig{}, fmt.Errorf("gcp credentials from json: %w", err)
	}

	return driven.GCPClientConfig{
		Options:   []option.ClientOption{option.WithCredentials(creds)},
		ProjectID: cred.ProjectID,
	}, nil
}

// FromDefaults builds client options from Application Default Credentials
// (GOOGLE_APPLICATION_CREDENTIALS, gcloud config, or the metadata server).
func (s *GCPSource) FromDefaults(ctx context.Context) (driven.GCPClientConfig, error) {
	creds, err := google.FindDefaultCredentials(ctx, gcpScope)
	if err != nil {
		return driven.GCPClientConfig{}, fmt.Errorf("gcp default chain: %w", driven.ErrCredentialsNotConfigured)
	}

	projectID := s.defaultProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}

	return driven.GCPClientConfig{
		Options:   []option.ClientOption{option.WithCredentials(creds)},
		ProjectID: projectID,
	}, nil
}
