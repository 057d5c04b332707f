package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-records-api/internal/models"
)

// ErrDuplicateIdentity is returned when an identity insert loses to an
// existing row with the same username.
var ErrDuplicateIdentity = errors.New("identity already exists")

// CredentialRepository handles persistence of identities. It is backed
// by the credential database, which is independent of the domain
// database.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository constructs the repository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create inserts a new identity. The uniqueness check and the insert
// are a single statement so two simultaneous registrations of the same
// username cannot both succeed.
func (r *CredentialRepository) Create(ctx context.Context, identity *models.Identity) error {
	now := time.Now().UTC()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}
	identity.UpdatedAt = now

	const query = `INSERT INTO identities (username, password_hash, role, created_at, updated_at)
        VALUES (:username, :password_hash, :role, :created_at, :updated_at)
        ON CONFLICT (username) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, identity)
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create identity result: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateIdentity
	}
	return nil
}

// FindByUsername returns an identity by its username.
func (r *CredentialRepository) FindByUsername(ctx context.Context, username string) (*models.Identity, error) {
	const query = `SELECT username, password_hash, role, created_at, updated_at FROM identities WHERE username = $1 LIMIT 1`
	var identity models.Identity
	if err := r.db.GetContext(ctx, &identity, query, username); err != nil {
		return nil, err
	}
	return &identity, nil
}

// UpdatePassword replaces the stored password hash.
func (r *CredentialRepository) UpdatePassword(ctx context.Context, username, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE username = $1`
	if _, err := r.db.ExecContext(ctx, query, username, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Delete removes an identity. Used as the provisioning compensation;
// deleting an already-absent row is not an error so the compensation
// stays safe to retry.
func (r *CredentialRepository) Delete(ctx context.Context, username string) error {
	const query = `DELETE FROM identities WHERE username = $1`
	if _, err := r.db.ExecContext(ctx, query, username); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}
