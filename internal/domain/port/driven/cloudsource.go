package driven

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/aws/aws-sdk-go-v2/aws"
	"google.golang.org/api/option"

	"github.com/cloudlens/cloudlens/internal/domain/model"
)

// ErrCredentialsNotConfigured is returned when neither a stored user
// credential nor a usable process-wide default credential is available
// for a provider.
var ErrCredentialsNotConfigured = errors.New("no credentials configured")

// AWSConfigSource builds ready-to-use AWS SDK configurations. FromDefaults
// consults the ambient default chain (env vars, shared config, IMDS) and
// wraps ErrCredentialsNotConfigured when the chain yields nothing.
type AWSConfigSource interface {
	FromCredential(ctx context.Context, cred model.AWSCredential) (aws.Config, error)
	FromDefaults(ctx context.Context) (aws.Config, error)
}

// AzureClientConfig is a ready-to-use Azure client configuration: a token
// credential plus the subscription it targets.
type AzureClientConfig struct {
	Credential     azcore.TokenCredential
	SubscriptionID string
}

// AzureConfigSource builds Azure client configurations.
type AzureConfigSource interface {
	FromCredential(ctx context.Context, cred model.AzureCredential) (AzureClientConfig, error)
	FromDefaults(ctx context.Context) (AzureClientConfig, error)
}

// GCPClientConfig is a ready-to-use GCP client configuration: client options
// for SDK construction plus the project they target.
type GCPClientConfig struct {
	Options   []option.ClientOption
	ProjectID string
}

// GCPConfigSource builds GCP client configurations.
type GCPConfigSource interface {
	FromCredential(ctx context.Context, cred model.GCPCredential) (GCPClientConfig, error)
	FromDefaults(ctx context.Context) (GCPClientConfig, error)
}
