package employer

import (
	"context"

	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Repository defines the contract for employer persistence
type Repository interface {
	// FindByEmail returns nil, nil when no employer has the email.
	FindByEmail(ctx context.Context, email string) (*Employer, error)
	FindByID(ctx context.Context, id kernel.EmployerID) (*Employer, error)
	// Insert returns ErrEmailTaken when the email is already registered.
	Insert(ctx context.Context, e Employer) (*Employer, error)
	Update(ctx context.Context, id kernel.EmployerID, patch Patch) (*Employer, error)
}
