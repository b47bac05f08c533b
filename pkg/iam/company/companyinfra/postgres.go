package companyinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/company"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresCompanyRepository stores companies in the companies table.
type PostgresCompanyRepository struct {
	db *sqlx.DB
}

func NewPostgresCompanyRepository(db *sqlx.DB) *PostgresCompanyRepository {
	return &PostgresCompanyRepository{db: db}
}

var _ company.Repository = (*PostgresCompanyRepository)(nil)

func (r *PostgresCompanyRepository) Create(ctx context.Context, c company.Company) (*company.Company, error) {
	query := `
		INSERT INTO companies (id, name, website, industry, size, created_at, updated_at)
		VALUES (:id, :name, :website, :industry, :size, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return nil, errx.Wrap(err, "failed to create company", errx.TypeInternal)
	}
	return &c, nil
}

func (r *PostgresCompanyRepository) FindByID(ctx context.Context, id kernel.CompanyID) (*company.Company, error) {
	var c company.Company
	query := `SELECT id, name, website, industry, size, created_at, updated_at FROM companies WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, company.ErrCompanyNotFound()
		}
		return nil, errx.Wrap(err, "failed to find company", errx.TypeInternal).
			WithDetail("company_id", id.String())
	}
	return &c, nil
}
