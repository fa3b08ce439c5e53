// Package driven defines the driven ports: interfaces the application core
// depends on, implemented by adapters.
package driven

import (
	"context"

	"github.com/cloudlens/cloudlens/internal/domain/model"
)

// CredentialStore is the driven port for per-user encrypted credential
// persistence. The store is blob-agnostic: it never encrypts, decrypts, or
// inspects blob contents.
type CredentialStore interface {
	// Store upserts the record for record.UserID, replacing all blob columns
	// with exactly the blobs supplied. Field-preserving merge semantics live
	// in the application layer.
	Store(ctx context.Context, record model.CredentialRecord) error

	// Get returns the record for userID, or (nil, nil) if none exists.
	// Only providers with a stored blob appear in the returned Blobs map.
	Get(ctx context.Context, userID string) (*model.CredentialRecord, error)

	// Delete removes the record for userID. Returns true if a record existed.
	// Deleting a nonexistent record is not an error.
	Delete(ctx context.Context, userID string) (bool, error)

	// Exists reports whether a record exists for userID.
	Exists(ctx context.Context, userID string) (bool, error)

	// ListUserIDs returns the IDs of all users with a stored record.
	// Maintenance and scheduler use only.
	ListUserIDs(ctx context.Context) ([]string, error)

	// ClearAll removes every stored record. Maintenance and testing use only.
	ClearAll(ctx context.Context) error
}
