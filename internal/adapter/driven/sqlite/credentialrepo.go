package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// It stores one row per user with a nullable blob column per provider and
// never looks inside a blob.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Store upserts the record for record.UserID. Every blob column is written:
// providers missing from record.Blobs are stored as NULL.
func (r *CredentialRepo) Store(ctx context.Context, record model.CredentialRecord) error {
	const query = `
		INSERT INTO credentials (user_id, aws_blob, azure_blob, gcp_blob, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			aws_blob = excluded.aws_blob,
			azure_blob = excluded.azure_blob,
			gcp_blob = excluded.gcp_blob,
			updated_at = excluded.updated_at`

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		record.UserID,
		nullableBlob(record.Blobs, model.ProviderAWS),
		nullableBlob(record.Blobs, model.ProviderAzure),
		nullableBlob(record.Blobs, model.ProviderGCP),
		formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("store credentials for user %s: %w", record.UserID, err)
	}

	return nil
}

// Get returns the record for userID, or (nil, nil) if none exists. Only
// providers with a non-NULL blob appear in the Blobs map.
func (r *CredentialRepo) Get(ctx context.Context, userID string) (*model.CredentialRecord, error) {
	const query = `SELECT aws_blob, azure_blob, gcp_blob, updated_at FROM credentials WHERE user_id = ?`

	var awsBlob, azureBlob, gcpBlob sql.NullString
	var updatedAt string

	err := r.db.Reader.QueryRowContext(ctx, query, userID).
		Scan(&awsBlob, &azureBlob, &gcpBlob, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials for user %s: %w", userID, err)
	}

	record := model.CredentialRecord{
		UserID: userID,
		Blobs:  make(map[model.Provider]string),
	}
	if awsBlob.Valid {
		record.Blobs[model.ProviderAWS] = awsBlob.String
	}
	if azureBlob.Valid {
		record.Blobs[model.ProviderAzure] = azureBlob.String
	}
	if gcpBlob.Valid {
		record.Blobs[model.ProviderGCP] = gcpBlob.String
	}

	record.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for user %s: %w", userID, err)
	}

	return &record, nil
}

// Delete removes the record for userID, reporting whether one existed.
func (r *CredentialRepo) Delete(ctx context.Context, userID string) (bool, error) {
	const query = `DELETE FROM credentials WHERE user_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("delete credentials for user %s: %w", userID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}

	return rows > 0, nil
}

// Exists reports whether a record exists for userID.
func (r *CredentialRepo) Exists(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT 1 FROM credentials WHERE user_id = ?`

	var one int
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check credentials exist for user %s: %w", userID, err)
	}

	return true, nil
}

// ListUserIDs returns the IDs of all users with a stored record.
func (r *CredentialRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT user_id FROM credentials ORDER BY user_id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credential user ids: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}

	return userIDs, nil
}

// ClearAll removes every stored record.
func (r *CredentialRepo) ClearAll(ctx context.Context) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// nullableBlob maps "provider absent from the map" to SQL NULL rather than
// an empty string, so a cleared credential is distinguishable at rest.
func nullableBlob(blobs map[model.Provider]string, p model.Provider) any {
	if blob, ok := blobs[p]; ok {
		return blob
	}
	return nil
}
