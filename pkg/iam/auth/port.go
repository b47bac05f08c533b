package auth

import (
	"context"

	"github.com/Abraxas-365/relay/pkg/iam/pending"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// AuditService defines the contract for authentication audit logging.
// Implementations must never receive codes or session tokens.
type AuditService interface {
	LogCodeDispatched(ctx context.Context, email string, kind pending.IntentKind, success bool, client Client)
	LogVerification(ctx context.Context, email string, success bool, reason string, client Client)
	LogAccountCreated(ctx context.Context, employerID kernel.EmployerID, email string, recovered bool, client Client)
	LogLogin(ctx context.Context, employerID kernel.EmployerID, client Client)
	LogLogout(ctx context.Context, employerID kernel.EmployerID, client Client)
	LogCompanyLinked(ctx context.Context, employerID kernel.EmployerID, companyID kernel.CompanyID, client Client)
}

// JobTypeWelcome is the job enqueued after an employer is created.
const JobTypeWelcome = "employer.welcome"

// QueueEmail is the queue email jobs run on.
const QueueEmail = "email"

// WelcomePayload is the payload of JobTypeWelcome.
type WelcomePayload struct {
	EmployerID   kernel.EmployerID `json:"employer_id"`
	Email        string            `json:"email"`
	FullName     string            `json:"full_name"`
	NeedsCompany bool              `json:"needs_company"`
}
