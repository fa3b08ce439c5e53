// Package application contains use-case orchestration services.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudlens/cloudlens/internal/crypto"
	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
	"github.com/cloudlens/cloudlens/internal/observability"
)

// ErrEncryptionKeyNotSet is returned by credential operations when
// CLOUDLENS_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set CLOUDLENS_SECRET_KEY")

// ErrNoCredentialsSupplied is returned by Store when the set is empty.
var ErrNoCredentialsSupplied = errors.New("no credentials supplied")

// CredentialService sits between callers and the blob-agnostic credential
// store: it validates plaintext credentials, encrypts them before write, and
// decrypts them after read. Decrypted material never outlives a single call.
//
// A stored blob that fails decryption, decoding, or validation is treated as
// absent: the failure is logged and counted, never raised, so a corrupt blob
// degrades to the default-credential path instead of breaking requests.
// Store-level failures always propagate.
type CredentialService struct {
	store   driven.CredentialStore
	key     []byte // 32-byte AES-256 key; nil when credential storage is disabled.
	metrics *observability.Metrics
}

// NewCredentialService creates a CredentialService. key must be
// crypto.KeySize bytes, or nil to disable credential storage: writes and
// health checks then return ErrEncryptionKeyNotSet, while reads report no
// stored credential so callers fall back to default chains.
func NewCredentialService(store driven.CredentialStore, key []byte, metrics *observability.Metrics) *CredentialService {
	return &CredentialService{store: store, key: key, metrics: metrics}
}

// Store validates and encrypts each supplied credential and upserts the
// user's record. Providers absent from the set keep their stored blobs;
// use Clear to remove one.
func (s *CredentialService) Store(ctx context.Context, userID string, set model.CredentialSet) error {
	if s.key == nil {
		return ErrEncryptionKeyNotSet
	}
	if set.Empty() {
		return ErrNoCredentialsSupplied
	}

	blobs := make(map[model.Provider]string)

	if set.AWS != nil {
		blob, err := s.sealCredential(model.ProviderAWS, *set.AWS, set.AWS.Validate())
		if err != nil {
			return err
		}
		blobs[model.ProviderAWS] = blob
	}
	if set.Azure != nil {
		blob, err := s.sealCredential(model.ProviderAzure, *set.Azure, set.Azure.Validate())
		if err != nil {
			return err
		}
		blobs[model.ProviderAzure] = blob
	}
	if set.GCP != nil {
		blob, err := s.sealCredential(model.ProviderGCP, *set.GCP, set.GCP.Validate())
		if err != nil {
			return err
		}
		blobs[model.ProviderGCP] = blob
	}

	existing, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		for provider, blob := range existing.Blobs {
			if _, replaced := blobs[provider]; !replaced {
				blobs[provider] = blob
			}
		}
	}

	return s.store.Store(ctx, model.CredentialRecord{
		UserID:    userID,
		Blobs:     blobs,
		UpdatedAt: time.Now().UTC(),
	})
}

// Clear removes one provider's blob from the user's record, leaving the
// others intact. Clearing an absent blob is a no-op.
func (s *CredentialService) Clear(ctx context.Context, userID string, provider model.Provider) error {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}
	if _, ok := record.Blobs[provider]; !ok {
		return nil
	}

	delete(record.Blobs, provider)
	record.UpdatedAt = time.Now().UTC()

	return s.store.Store(ctx, *record)
}

// Delete removes the user's entire record, reporting whether one existed.
func (s *CredentialService) Delete(ctx context.Context, userID string) (bool, error) {
	return s.store.Delete(ctx, userID)
}

// StoredProviders returns which providers have a stored blob for the user,
// without decrypting anything, plus the record's last update time.
func (s *CredentialService) StoredProviders(ctx context.Context, userID string) ([]model.Provider, time.Time, error) {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if record == nil {
		return nil, time.Time{}, nil
	}

	var providers []model.Provider
	for _, p := range model.AllProviders() {
		if _, ok := record.Blobs[p]; ok {
			providers = append(providers, p)
		}
	}

	return providers, record.UpdatedAt, nil
}

// AWS returns the user's decrypted AWS credential, or (nil, nil) when no
// usable credential is stored.
func (s *CredentialService) AWS(ctx context.Context, userID string) (*model.AWSCredential, error) {
	var cred model.AWSCredential
	ok, err := s.openCredential(ctx, userID, model.ProviderAWS, &cred, func() error { return cred.Validate() })
	if err != nil || !ok {
		return nil, err
	}
	return &cred, nil
}

// Azure returns the user's decrypted Azure credential, or (nil, nil) when no
// usable credential is stored.
func (s *CredentialService) Azure(ctx context.Context, userID string) (*model.AzureCredential, error) {
	var cred model.AzureCredential
	ok, err := s.openCredential(ctx, userID, model.ProviderAzure, &cred, func() error { return cred.Validate() })
	if err != nil || !ok {
		return nil, err
	}
	return &cred, nil
}

// GCP returns the user's decrypted GCP credential, or (nil, nil) when no
// usable credential is stored.
func (s *CredentialService) GCP(ctx context.Context, userID string) (*model.GCPCredential, error) {
	var cred model.GCPCredential
	ok, err := s.openCredential(ctx, userID, model.ProviderGCP, &cred, func() error { return cred.Validate() })
	if err != nil || !ok {
		return nil, err
	}
	return &cred, nil
}

// Health re-decrypts and validates every stored blob for the user and
// reports per-provider status. This is how a credential owner discovers a
// blob that the resolution path silently falls back from.
func (s *CredentialService) Health(ctx context.Context, userID string) (model.CredentialHealth, error) {
	if s.key == nil {
		return nil, ErrEncryptionKeyNotSet
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	health := make(model.CredentialHealth, len(model.AllProviders()))
	for _, provider := range model.AllProviders() {
		blob, ok := record.Blob(provider)
		if !ok {
			health[provider] = model.CredentialStatusAbsent
			continue
		}
		if s.checkBlob(provider, blob) {
			health[provider] = model.CredentialStatusOK
		} else {
			health[provider] = model.CredentialStatusInvalid
		}
	}

	return health, nil
}

// sealCredential validates and encrypts one plaintext credential.
func (s *CredentialService) sealCredential(provider model.Provider, cred any, validationErr error) (string, error) {
	if validationErr != nil {
		return "", fmt.Errorf("%s: %w", provider, validationErr)
	}

	plaintext, err := json.Marshal(cred)
	if err != nil {
		return "", fmt.Errorf("marshal %s credential: %w", provider, err)
	}

	blob, err := crypto.Encrypt(s.key, string(plaintext))
	if err != nil {
		return "", fmt.Errorf("encrypt %s credential: %w", provider, err)
	}

	return blob, nil
}

// openCredential loads, decrypts, decodes, and validates one stored blob.
// It returns (false, nil) for absent or malformed blobs and (false, err)
// only for store failures. With no encryption key configured, every stored
// blob is unreadable, so reads report absent and resolution proceeds on the
// default chains; only writes and health checks raise ErrEncryptionKeyNotSet.
func (s *CredentialService) openCredential(ctx context.Context, userID string, provider model.Provider, out any, validate func() error) (bool, error) {
	if s.key == nil {
		return false, nil
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	blob, ok := record.Blob(provider)
	if !ok {
		return false, nil
	}

	plaintext, err := crypto.Decrypt(s.key, blob)
	if err != nil {
		s.malformed(userID, provider, err)
		return false, nil
	}

	if err := json.Unmarshal([]byte(plaintext), out); err != nil {
		s.malformed(userID, provider, err)
		return false, nil
	}

	if err := validate(); err != nil {
		s.malformed(userID, provider, err)
		return false, nil
	}

	return true, nil
}

// checkBlob reports whether a stored blob decrypts and validates, without
// handing the plaintext to the caller.
func (s *CredentialService) checkBlob(provider model.Provider, blob string) bool {
	plaintext, err := crypto.Decrypt(s.key, blob)
	if err != nil {
		return false
	}

	switch provider {
	case model.ProviderAWS:
		var cred model.AWSCredential
		return json.Unmarshal([]byte(plaintext), &cred) == nil && cred.Validate() == nil
	case model.ProviderAzure:
		var cred model.AzureCredential
		return json.Unmarshal([]byte(plaintext), &cred) == nil && cred.Validate() == nil
	case model.ProviderGCP:
		var cred model.GCPCredential
		return json.Unmarshal([]byte(plaintext), &cred) == nil && cred.Validate() == nil
	}
	return false
}

func (s *CredentialService) malformed(userID string, provider model.Provider, err error) {
	slog.Warn("stored credential unusable, falling back to defaults",
		"user_hash", crypto.Hash(userID)[:12],
		"provider", provider,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.CredentialFallbacks.WithLabelValues(string(provider)).Inc()
	}
}
