package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingField marks a credential payload rejected for a missing
// required field. Callers match it with errors.Is to distinguish bad input
// from infrastructure failures.
var ErrMissingField = errors.New("missing required field")

// CredentialRecord is the stored form of a user's provider credentials: one
// encrypted, base64-encoded blob per provider. The record is opaque at this
// layer; encryption and decryption happen in the application layer.
type CredentialRecord struct {
	UserID    string
	Blobs     map[Provider]string
	UpdatedAt time.Time
}

// Blob returns the stored blob for the given provider, if present.
func (r *CredentialRecord) Blob(p Provider) (string, bool) {
	if r == nil || r.Blobs == nil {
		return "", false
	}
	blob, ok := r.Blobs[p]
	return blob, ok
}

// AWSCredential is the decrypted shape of a stored AWS credential blob.
type AWSCredential struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region,omitempty"`
}

// Validate checks that all required fields are present.
func (c AWSCredential) Validate() error {
	if c.AccessKeyID == "" {
		return fmt.Errorf("aws credential: %w: accessKeyId", ErrMissingField)
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("aws credential: %w: secretAccessKey", ErrMissingField)
	}
	return nil
}

// AzureCredential is the decrypted shape of a stored Azure credential blob.
type AzureCredential struct {
	TenantID       string `json:"tenantId"`
	ClientID       string `json:"clientId"`
	ClientSecret   string `json:"clientSecret"`
	SubscriptionID string `json:"subscriptionId"`
}

// Validate checks that all required fields are present.
func (c AzureCredential) Validate() error {
	switch {
	case c.TenantID == "":
		return fmt.Errorf("azure credential: %w: tenantId", ErrMissingField)
	case c.ClientID == "":
		return fmt.Errorf("azure credential: %w: clientId", ErrMissingField)
	case c.ClientSecret == "":
		return fmt.Errorf("azure credential: %w: clientSecret", ErrMissingField)
	case c.SubscriptionID == "":
		return fmt.Errorf("azure credential: %w: subscriptionId", ErrMissingField)
	}
	return nil
}

// GCPCredential is the decrypted shape of a stored GCP credential blob.
type GCPCredential struct {
	ProjectID           string `json:"projectId"`
	ServiceAccountEmail string `json:"serviceAccountEmail"`
	PrivateKey          string `json:"privateKey"`
}

// Validate checks that all required fields are present.
func (c GCPCredential) Validate() error {
	switch {
	case c.ProjectID == "":
		return fmt.Errorf("gcp credential: %w: projectId", ErrMissingField)
	case c.ServiceAccountEmail == "":
		return fmt.Errorf("gcp credential: %w: serviceAccountEmail", ErrMissingField)
	case c.PrivateKey == "":
		return fmt.Errorf("gcp credential: %w: privateKey", ErrMissingField)
	}
	return nil
}

// CredentialSet carries plaintext credentials for any subset of providers.
// A nil field means "leave that provider unchanged" on store.
type CredentialSet struct {
	AWS   *AWSCredential
	Azure *AzureCredential
	GCP   *GCPCredential
}

// Empty reports whether the set carries no credentials at all.
func (s CredentialSet) Empty() bool {
	return s.AWS == nil && s.Azure == nil && s.GCP == nil
}

// CredentialStatus describes the health of one stored provider blob.
type CredentialStatus string

const (
	// CredentialStatusOK means the blob decrypted and validated.
	CredentialStatusOK CredentialStatus = "ok"
	// CredentialStatusInvalid means the blob failed decryption or validation.
	CredentialStatusInvalid CredentialStatus = "invalid"
	// CredentialStatusAbsent means no blob is stored for the provider.
	CredentialStatusAbsent CredentialStatus = "absent"
)

// CredentialHealth maps each provider to the status of its stored blob.
type CredentialHealth map[Provider]CredentialStatus
