package employerinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/employer"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const employerColumns = `id, full_name, email, phone, job_role, company_id,
	is_verified, is_active, last_login_at, created_at, updated_at`

// PostgresEmployerRepository stores employers in the employers table.
type PostgresEmployerRepository struct {
	db *sqlx.DB
}

func NewPostgresEmployerRepository(db *sqlx.DB) *PostgresEmployerRepository {
	return &PostgresEmployerRepository{db: db}
}

var _ employer.Repository = (*PostgresEmployerRepository)(nil)

func (r *PostgresEmployerRepository) FindByEmail(ctx context.Context, email string) (*employer.Employer, error) {
	var e employer.Employer
	query := `SELECT ` + employerColumns + ` FROM employers WHERE email = $1`
	err := r.db.GetContext(ctx, &e, query, kernel.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find employer by email", errx.TypeInternal)
	}
	return &e, nil
}

func (r *PostgresEmployerRepository) FindByID(ctx context.Context, id kernel.EmployerID) (*employer.Employer, error) {
	var e employer.Employer
	query := `SELECT ` + employerColumns + ` FROM employers WHERE id = $1`
	err := r.db.GetContext(ctx, &e, query, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, employer.ErrEmployerNotFound()
		}
		return nil, errx.Wrap(err, "failed to find employer by id", errx.TypeInternal).
			WithDetail("employer_id", id.String())
	}
	return &e, nil
}

func (r *PostgresEmployerRepository) Insert(ctx context.Context, e employer.Employer) (*employer.Employer, error) {
	e.Email = kernel.NormalizeEmail(e.Email)

	query := `
		INSERT INTO employers (
			id, full_name, email, phone, job_role, company_id,
			is_verified, is_active, last_login_at, created_at, updated_at
		) VALUES (
			:id, :full_name, :email, :phone, :job_role, :company_id,
			:is_verified, :is_active, :last_login_at, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation on email or id
			return nil, employer.ErrEmailTaken().WithCause(err)
		}
		return nil, errx.Wrap(err, "failed to insert employer", errx.TypeInternal)
	}
	return &e, nil
}

func (r *PostgresEmployerRepository) Update(ctx context.Context, id kernel.EmployerID, patch employer.Patch) (*employer.Employer, error) {
	query := `
		UPDATE employers SET
			last_login_at = COALESCE($2, last_login_at),
			company_id = COALESCE($3, company_id),
			is_verified = COALESCE($4, is_verified),
			is_active = COALESCE($5, is_active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + employerColumns

	var e employer.Employer
	err := r.db.GetContext(ctx, &e, query,
		id.String(), patch.LastLoginAt, patch.CompanyID, patch.IsVerified, patch.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, employer.ErrEmployerNotFound()
		}
		return nil, errx.Wrap(err, "failed to update employer", errx.TypeInternal).
			WithDetail("employer_id", id.String())
	}
	return &e, nil
}
