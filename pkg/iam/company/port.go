package company

import (
	"context"

	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Repository defines the contract for company persistence
type Repository interface {
	Create(ctx context.Context, c Company) (*Company, error)
	// FindByID returns ErrCompanyNotFound when absent.
	FindByID(ctx context.Context, id kernel.CompanyID) (*Company, error)
}
