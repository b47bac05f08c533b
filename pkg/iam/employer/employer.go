package employer

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// ============================================================================
// Employer Types
// ============================================================================

// Employer is the recruiter profile behind a verified identity. Its ID is the
// identity's subject id and its email is unique ignoring case.
type Employer struct {
	ID          kernel.EmployerID `db:"id" json:"id"`
	FullName    string            `db:"full_name" json:"full_name"`
	Email       string            `db:"email" json:"email"`
	Phone       *string           `db:"phone" json:"phone,omitempty"`
	JobRole     *string           `db:"job_role" json:"job_role,omitempty"`
	CompanyID   *kernel.CompanyID `db:"company_id" json:"company_id,omitempty"`
	IsVerified  bool              `db:"is_verified" json:"is_verified"`
	IsActive    bool              `db:"is_active" json:"is_active"`
	LastLoginAt *time.Time        `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// HasCompany reports whether the employer is linked to a company
func (e *Employer) HasCompany() bool {
	return e.CompanyID != nil && !e.CompanyID.IsEmpty()
}

// CanSignIn reports whether the profile may hold a session
func (e *Employer) CanSignIn() bool {
	return e.IsActive && e.IsVerified
}

// Patch lists the mutable fields. Nil fields are left untouched.
type Patch struct {
	LastLoginAt *time.Time
	CompanyID   *kernel.CompanyID
	IsVerified  *bool
	IsActive    *bool
}

// Apply copies the non-nil patch fields onto e.
func (p Patch) Apply(e *Employer, now time.Time) {
	if p.LastLoginAt != nil {
		t := *p.LastLoginAt
		e.LastLoginAt = &t
	}
	if p.CompanyID != nil {
		id := *p.CompanyID
		e.CompanyID = &id
	}
	if p.IsVerified != nil {
		e.IsVerified = *p.IsVerified
	}
	if p.IsActive != nil {
		e.IsActive = *p.IsActive
	}
	e.UpdatedAt = now
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("EMPLOYER")

var (
	CodeEmployerNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Employer not found")
	CodeEmailTaken       = ErrRegistry.Register("EMAIL_TAKEN", errx.TypeConflict, http.StatusConflict, "An employer with this email already exists")
)

func ErrEmployerNotFound() *errx.Error { return ErrRegistry.New(CodeEmployerNotFound) }
func ErrEmailTaken() *errx.Error       { return ErrRegistry.New(CodeEmailTaken) }
