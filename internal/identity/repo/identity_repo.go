package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sellergrid/service-core-go/internal/identity/entity"
)

// ErrDuplicateEmail is returned by Add when the store-level unique
// constraint on email fires. The service performs a lookup-then-insert
// check first; this constraint is the defense-in-depth behind it.
var ErrDuplicateEmail = errors.New("email already exists")

// IdentityRepo provides data access for the identities table using sqlx.
type IdentityRepo struct {
	db *sqlx.DB
}

func NewIdentityRepo(db *sqlx.DB) *IdentityRepo { return &IdentityRepo{db: db} }

// EnsureTable creates the identities table if not exists (idempotent).
// Prefer migrations in production; this keeps early development friction low.
func (r *IdentityRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS identities (
  id VARCHAR(32) PRIMARY KEY,
  name TEXT NOT NULL,
  email CITEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'User',
  password_digest TEXT NOT NULL,
  email_confirmed BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_identities_email ON identities(email);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// GetByID fetches an identity by id, or nil when absent.
func (r *IdentityRepo) GetByID(ctx context.Context, id string) (*entity.Identity, error) {
	const q = `SELECT id, name, email, role, password_digest, email_confirmed, created_at, updated_at
	  FROM identities WHERE id=$1`
	var row entity.Identity
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &row, nil
}

// FindByEmail returns the identity matching the email (case-insensitive due
// to citext), or nil when no account exists for it.
func (r *IdentityRepo) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	const q = `SELECT id, name, email, role, password_digest, email_confirmed, created_at, updated_at
	  FROM identities WHERE email=$1`
	var row entity.Identity
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find identity by email: %w", err)
	}
	return &row, nil
}

// GetAll lists all identities ordered by creation time.
func (r *IdentityRepo) GetAll(ctx context.Context) ([]*entity.Identity, error) {
	const q = `SELECT id, name, email, role, password_digest, email_confirmed, created_at, updated_at
	  FROM identities ORDER BY created_at`
	var rows []*entity.Identity
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return rows, nil
}

// Add inserts a new identity row. A unique violation on email surfaces as
// ErrDuplicateEmail.
func (r *IdentityRepo) Add(ctx context.Context, ident *entity.Identity) error {
	const q = `INSERT INTO identities (id, name, email, role, password_digest, email_confirmed)
	  VALUES (:id, :name, :email, :role, :password_digest, :email_confirmed)`
	if _, err := r.db.NamedExecContext(ctx, q, ident); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// Update persists mutable fields of an existing identity.
func (r *IdentityRepo) Update(ctx context.Context, ident *entity.Identity) error {
	const q = `UPDATE identities
	  SET name=:name, email=:email, role=:role, password_digest=:password_digest,
	      email_confirmed=:email_confirmed, updated_at=NOW()
	  WHERE id=:id`
	if _, err := r.db.NamedExecContext(ctx, q, ident); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update identity: %w", err)
	}
	return nil
}

// Delete removes an identity by id.
func (r *IdentityRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}
