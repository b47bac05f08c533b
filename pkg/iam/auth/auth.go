package auth

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/company"
	"github.com/Abraxas-365/relay/pkg/iam/employer"
	"github.com/Abraxas-365/relay/pkg/iam/pending"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// ============================================================================
// Flow Types
// ============================================================================

// FlowState is where a client stands in the passwordless flow.
type FlowState string

const (
	FlowStateAnonymous    FlowState = "anonymous"
	FlowStateAwaitingCode FlowState = "awaiting_code"
	FlowStateVerified     FlowState = "verified"
)

// Redirect names the screen a verified client goes to next.
type Redirect string

const (
	RedirectCompanySetup Redirect = "company-setup"
	RedirectDashboard    Redirect = "dashboard"
)

// RedirectFor depends on companyID only.
func RedirectFor(companyID *kernel.CompanyID) Redirect {
	if companyID == nil || companyID.IsEmpty() {
		return RedirectCompanySetup
	}
	return RedirectDashboard
}

// RedirectPolicy maps redirects to application paths.
type RedirectPolicy struct {
	CompanySetupPath string
	DashboardPath    string
}

func (p RedirectPolicy) Path(r Redirect) string {
	if r == RedirectDashboard {
		return p.DashboardPath
	}
	return p.CompanySetupPath
}

// Client identifies the browser behind a call.
type Client struct {
	DeviceID     kernel.DeviceID
	SessionToken string
	IP           string
	UserAgent    string
}

// ============================================================================
// Result Envelope
// ============================================================================

// Result is returned by every orchestrator operation.
type Result struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	ErrorCode string         `json:"error_code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Data      any            `json:"data"`

	// Status is the HTTP status derived from the error code.
	Status int `json:"-"`
}

// OK builds a successful result.
func OK(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data, Status: http.StatusOK}
}

// Fail builds a failed result from err. Errors outside the AUTH registry are
// reported as AUTH_INTERNAL.
func Fail(err error) Result {
	var e *errx.Error
	if !errx.As(err, &e) || !isAuthCode(e.Code) {
		e = ErrInternal().WithCause(err)
	}
	return Result{
		Success:   false,
		Message:   e.Message,
		ErrorCode: e.Code,
		Details:   e.Details,
		Status:    e.HTTPStatus,
	}
}

// AwaitingCode is the data of a successful signup, login or resend.
type AwaitingCode struct {
	State             FlowState          `json:"state"`
	Kind              pending.IntentKind `json:"kind"`
	Email             string             `json:"email"`
	ResendAvailableAt time.Time          `json:"resend_available_at"`
}

// Verified is the data of a successful verification.
type Verified struct {
	State        FlowState         `json:"state"`
	Employer     employer.Employer `json:"employer"`
	Company      *company.Company  `json:"company,omitempty"`
	Redirect     Redirect          `json:"redirect"`
	RedirectPath string            `json:"redirect_path"`
	SessionToken string            `json:"session_token"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// CurrentUser is the data of currentUser when a session exists.
type CurrentUser struct {
	Employer     employer.Employer `json:"employer"`
	Company      *company.Company  `json:"company,omitempty"`
	Redirect     Redirect          `json:"redirect"`
	RedirectPath string            `json:"redirect_path"`
}

// FlowStatus is the data of flowStatus for clients without a session.
type FlowStatus struct {
	State        FlowState          `json:"state"`
	Kind         pending.IntentKind `json:"kind,omitempty"`
	Email        string             `json:"email,omitempty"`
	Redirect     Redirect           `json:"redirect,omitempty"`
	RedirectPath string             `json:"redirect_path,omitempty"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeDuplicateAccount      = ErrRegistry.Register("DUPLICATE_ACCOUNT", errx.TypeConflict, http.StatusConflict, "An account with this email already exists")
	CodeAccountNotFound       = ErrRegistry.Register("ACCOUNT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "No active account exists for this email")
	CodeProfileNotFound       = ErrRegistry.Register("PROFILE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Verified identity has no profile")
	CodeCodeDispatchFailed    = ErrRegistry.Register("CODE_DISPATCH_FAILED", errx.TypeExternal, http.StatusBadGateway, "Could not send the verification code, please try again")
	CodeInvalidOrExpiredCode  = ErrRegistry.Register("INVALID_OR_EXPIRED_CODE", errx.TypeValidation, http.StatusBadRequest, "The code is invalid or has expired")
	CodeProfileCreationFailed = ErrRegistry.Register("PROFILE_CREATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Your email was verified but the profile could not be created, please contact support")
	CodeValidationFailed      = ErrRegistry.Register("VALIDATION_FAILED", errx.TypeValidation, http.StatusBadRequest, "Invalid request")
	CodeCompanyAlreadyLinked  = ErrRegistry.Register("COMPANY_ALREADY_LINKED", errx.TypeConflict, http.StatusConflict, "The account already has a company")
	CodeUnauthenticated       = ErrRegistry.Register("UNAUTHENTICATED", errx.TypeAuthorization, http.StatusUnauthorized, "Authentication required")
	CodeInternal              = ErrRegistry.Register("INTERNAL", errx.TypeInternal, http.StatusInternalServerError, "Something went wrong")
)

func ErrDuplicateAccount() *errx.Error     { return ErrRegistry.New(CodeDuplicateAccount) }
func ErrAccountNotFound() *errx.Error      { return ErrRegistry.New(CodeAccountNotFound) }
func ErrProfileNotFound() *errx.Error      { return ErrRegistry.New(CodeProfileNotFound) }
func ErrCodeDispatchFailed() *errx.Error   { return ErrRegistry.New(CodeCodeDispatchFailed) }
func ErrInvalidOrExpiredCode() *errx.Error { return ErrRegistry.New(CodeInvalidOrExpiredCode) }
func ErrValidationFailed() *errx.Error     { return ErrRegistry.New(CodeValidationFailed) }
func ErrCompanyAlreadyLinked() *errx.Error { return ErrRegistry.New(CodeCompanyAlreadyLinked) }
func ErrUnauthenticated() *errx.Error      { return ErrRegistry.New(CodeUnauthenticated) }
func ErrInternal() *errx.Error             { return ErrRegistry.New(CodeInternal) }

// ErrProfileCreationFailed carries support=true so clients can offer a contact option.
func ErrProfileCreationFailed() *errx.Error {
	return ErrRegistry.New(CodeProfileCreationFailed).WithDetail("support", true)
}

func isAuthCode(code string) bool {
	for _, c := range ErrRegistry.Codes() {
		if c.Code == code {
			return true
		}
	}
	return false
}
