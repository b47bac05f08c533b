package pending

import (
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// IntentKind says which flow a dispatched code belongs to.
type IntentKind string

const (
	IntentKindSignup IntentKind = "signup"
	IntentKindLogin  IntentKind = "login"
)

// SignupIntent is the profile collected by the signup form, held until the
// code is verified.
type SignupIntent struct {
	Email         string            `json:"email"`
	FullName      string            `json:"full_name"`
	Phone         *string           `json:"phone,omitempty"`
	JobRole       *string           `json:"job_role,omitempty"`
	CompanyID     *kernel.CompanyID `json:"company_id,omitempty"`
	CreateCompany bool              `json:"create_company"`
}

// Intent occupies the single pending slot of a device.
type Intent struct {
	Kind      IntentKind    `json:"kind"`
	Email     string        `json:"email"`
	Signup    *SignupIntent `json:"signup,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewSignupIntent(s SignupIntent, now time.Time) Intent {
	s.Email = kernel.NormalizeEmail(s.Email)
	return Intent{Kind: IntentKindSignup, Email: s.Email, Signup: &s, CreatedAt: now}
}

func NewLoginIntent(email string, now time.Time) Intent {
	return Intent{Kind: IntentKindLogin, Email: kernel.NormalizeEmail(email), CreatedAt: now}
}

// IsSignupFor reports whether the intent is a signup for email.
func (i *Intent) IsSignupFor(email string) bool {
	return i != nil && i.Kind == IntentKindSignup && i.Signup != nil &&
		i.Email == kernel.NormalizeEmail(email)
}

// Metadata keys written to the identity provider on signup dispatch.
const (
	MetaFullName      = "full_name"
	MetaPhone         = "phone"
	MetaJobRole       = "job_role"
	MetaCompanyID     = "company_id"
	MetaCreateCompany = "create_company"
	MetaIntent        = "intent"
)

// ToMetadata flattens the signup profile for the identity provider.
func (s SignupIntent) ToMetadata() map[string]any {
	md := map[string]any{
		MetaIntent:        string(IntentKindSignup),
		MetaFullName:      s.FullName,
		MetaCreateCompany: s.CreateCompany,
	}
	if s.Phone != nil {
		md[MetaPhone] = *s.Phone
	}
	if s.JobRole != nil {
		md[MetaJobRole] = *s.JobRole
	}
	if s.CompanyID != nil {
		md[MetaCompanyID] = s.CompanyID.String()
	}
	return md
}

// SignupIntentFromMetadata rebuilds a signup profile from provider metadata.
// It reports false when the metadata was not written by a signup.
func SignupIntentFromMetadata(email string, md map[string]any) (*SignupIntent, bool) {
	if md == nil {
		return nil, false
	}
	if kind, _ := md[MetaIntent].(string); kind != string(IntentKindSignup) {
		return nil, false
	}
	name, _ := md[MetaFullName].(string)
	if strings.TrimSpace(name) == "" {
		return nil, false
	}

	s := &SignupIntent{
		Email:    kernel.NormalizeEmail(email),
		FullName: name,
	}
	if v, ok := md[MetaPhone].(string); ok && v != "" {
		s.Phone = &v
	}
	if v, ok := md[MetaJobRole].(string); ok && v != "" {
		s.JobRole = &v
	}
	if v, ok := md[MetaCompanyID].(string); ok && v != "" {
		id := kernel.NewCompanyID(v)
		s.CompanyID = &id
	}
	s.CreateCompany, _ = md[MetaCreateCompany].(bool)
	return s, true
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("PENDING")

var (
	CodeStoreFailed  = ErrRegistry.Register("STORE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Pending state store failure")
	CodeDecodeFailed = ErrRegistry.Register("DECODE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Pending state could not be decoded")
)

func ErrStoreFailed() *errx.Error  { return ErrRegistry.New(CodeStoreFailed) }
func ErrDecodeFailed() *errx.Error { return ErrRegistry.New(CodeDecodeFailed) }
