package kernel

// ============================================================================
// Context Types
// ============================================================================

// AuthContext is the authenticated caller injected into each request
type AuthContext struct {
	EmployerID   EmployerID `json:"employer_id"`
	CompanyID    *CompanyID `json:"company_id,omitempty"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	SessionToken string     `json:"-"`
}

// IsValid reports whether the context identifies an employer
func (ac *AuthContext) IsValid() bool {
	return ac != nil && !ac.EmployerID.IsEmpty() && ac.SessionToken != ""
}

// HasCompany reports whether the employer finished company onboarding
func (ac *AuthContext) HasCompany() bool {
	return ac != nil && ac.CompanyID != nil && !ac.CompanyID.IsEmpty()
}

// ============================================================================
// Context Keys
// ============================================================================

type ContextKey string

const (
	// AuthContextKey stores *AuthContext in fiber locals
	AuthContextKey ContextKey = "auth_context"

	// DeviceContextKey stores the caller's DeviceID in fiber locals
	DeviceContextKey ContextKey = "device_id"

	// RequestIDKey stores the request id
	RequestIDKey ContextKey = "request_id"
)
