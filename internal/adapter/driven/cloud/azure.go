package cloud

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AzureConfigSource = (*AzureSource)(nil)

// AzureSource builds Azure client configurations.
type AzureSource struct {
	defaultSubscriptionID string
}

// NewAzureSource creates an AzureSource. defaultSubscriptionID (typically
// AZURE_SUBSCRIPTION_ID) scopes the default-credential path; without it the
// default path is unusable since the SDK cannot derive a subscription.
func NewAzureSource(defaultSubscriptionID string) *AzureSource {
	return &AzureSource{defaultSubscriptionID: defaultSubscriptionID}
}

// FromCredential builds a client-secret credential from a stored user
// credential.
func (s *AzureSource) FromCredential(ctx context.Context, cred model.AzureCredential) (driven.AzureClientConfig, error) {
	tokenCred, err := azidentity.NewClientSecretCredential(cred.TenantID, cred.ClientID, cred.ClientSecret, nil)
	if err != nil {
		return driven.AzureClientConfig{}, fmt.Errorf("azure client secret credential: %w", err)
	}

	return driven.AzureClientConfig{
		Credential:     tokenCred,
		SubscriptionID: cred.SubscriptionID,
	}, nil
}

// FromDefaults builds a configuration from DefaultAzureCredential, which
// chains environment variables, workload identity, managed identity, and
// the Azure CLI.
func (s *AzureSource) FromDefaults(ctx context.Context) (driven.AzureClientConfig, error) {
	if s.defaultSubscriptionID == "" {
		return driven.AzureClientConfig{}, fmt.Errorf("azure subscription id unset: %w", driven.ErrCredentialsNotConfigured)
	}

	tokenCred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return driven.AzureClientConfig{}, fmt.Errorf("azure default chain: %w", driven.ErrCredentialsNotConfigured)
	}

	return driven.AzureClientConfig{
		Credential:     tokenCred,
		SubscriptionID: s.defaultSubscriptionID,
	}, nil
}
