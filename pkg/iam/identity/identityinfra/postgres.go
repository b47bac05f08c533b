package identityinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresIdentityRepository stores identities in the identities table.
type PostgresIdentityRepository struct {
	db *sqlx.DB
}

func NewPostgresIdentityRepository(db *sqlx.DB) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{db: db}
}

var _ identity.Repository = (*PostgresIdentityRepository)(nil)

func (r *PostgresIdentityRepository) FindByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	var ident identity.Identity
	query := `SELECT * FROM identities WHERE email = $1`
	err := r.db.GetContext(ctx, &ident, query, kernel.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find identity by email", errx.TypeInternal)
	}
	return &ident, nil
}

func (r *PostgresIdentityRepository) FindByID(ctx context.Context, id kernel.SubjectID) (*identity.Identity, error) {
	var ident identity.Identity
	query := `SELECT * FROM identities WHERE subject_id = $1`
	err := r.db.GetContext(ctx, &ident, query, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrIdentityNotFound()
		}
		return nil, errx.Wrap(err, "failed to find identity by id", errx.TypeInternal).
			WithDetail("subject_id", id.String())
	}
	return &ident, nil
}

func (r *PostgresIdentityRepository) Create(ctx context.Context, ident identity.Identity) (*identity.Identity, error) {
	ident.Email = kernel.NormalizeEmail(ident.Email)
	if ident.Metadata == nil {
		ident.Metadata = identity.Metadata{}
	}

	query := `
		INSERT INTO identities (
			subject_id, email, email_verified, metadata, created_at, updated_at
		) VALUES (
			:subject_id, :email, :email_verified, :metadata, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, ident); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation on email
			return nil, identity.ErrIdentityExists()
		}
		return nil, errx.Wrap(err, "failed to create identity", errx.TypeInternal)
	}
	return &ident, nil
}

func (r *PostgresIdentityRepository) UpdateMetadata(ctx context.Context, id kernel.SubjectID, metadata identity.Metadata) error {
	query := `UPDATE identities SET metadata = $2, updated_at = $3 WHERE subject_id = $1`
	return r.exec(ctx, query, "failed to update identity metadata", id.String(), metadata, time.Now())
}

func (r *PostgresIdentityRepository) MarkEmailVerified(ctx context.Context, id kernel.SubjectID) error {
	query := `UPDATE identities SET email_verified = TRUE, updated_at = $2 WHERE subject_id = $1`
	return r.exec(ctx, query, "failed to mark identity verified", id.String(), time.Now())
}

func (r *PostgresIdentityRepository) exec(ctx context.Context, query, msg string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errx.Wrap(err, msg, errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return identity.ErrIdentityNotFound()
	}
	return nil
}
