package identity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// ============================================================================
// Identity Types
// ============================================================================

// Identity is an email the provider knows about. Identities exist before any
// employer profile does and outlive failed signups.
type Identity struct {
	SubjectID     kernel.SubjectID `db:"subject_id" json:"subject_id"`
	Email         string           `db:"email" json:"email"`
	EmailVerified bool             `db:"email_verified" json:"email_verified"`
	Metadata      Metadata         `db:"metadata" json:"metadata"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// Metadata is free-form data the caller attaches when dispatching a code.
type Metadata map[string]any

// Value implements driver.Valuer for JSONB columns.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns.
func (m *Metadata) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("identity: cannot scan %T into Metadata", src)
	}
	out := Metadata{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// DispatchOptions controls how a code dispatch treats unknown emails.
type DispatchOptions struct {
	// CreateIfMissing creates the identity when the email is unknown.
	// Without it an unknown email fails with ErrIdentityNotFound.
	CreateIfMissing bool
	// Metadata replaces the identity metadata when non-nil.
	Metadata Metadata
}

// Verification is the outcome of an accepted code.
type Verification struct {
	Identity     Identity  `json:"identity"`
	SessionToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Session is the provider-side record behind a session token.
type Session struct {
	ID        string           `json:"id"`
	SubjectID kernel.SubjectID `json:"subject_id"`
	Email     string           `json:"email"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenClaims represents the claims carried by a session token
type TokenClaims struct {
	SessionID string           `json:"sid"`
	SubjectID kernel.SubjectID `json:"sub"`
	Email     string           `json:"email"`
	IssuedAt  time.Time        `json:"iat"`
	ExpiresAt time.Time        `json:"exp"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("IDENTITY")

var (
	CodeIdentityNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Identity not found")
	CodeIdentityExists        = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Identity already exists")
	CodeDispatchFailed        = ErrRegistry.Register("DISPATCH_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to dispatch verification code")
	CodeDispatchRejected      = ErrRegistry.Register("DISPATCH_REJECTED", errx.TypeBusiness, http.StatusTooManyRequests, "Verification code dispatch rejected")
	CodeInvalidCode           = ErrRegistry.Register("INVALID_CODE", errx.TypeValidation, http.StatusBadRequest, "Invalid or expired verification code")
	CodeTokenGenerationFailed = ErrRegistry.Register("TOKEN_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Token generation failed")
	CodeTokenValidationFailed = ErrRegistry.Register("TOKEN_VALIDATION_FAILED", errx.TypeAuthorization, http.StatusUnauthorized, "Token validation failed")
	CodeStoreFailed           = ErrRegistry.Register("STORE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Identity store failure")
	CodeProviderUnavailable   = ErrRegistry.Register("PROVIDER_UNAVAILABLE", errx.TypeExternal, http.StatusBadGateway, "Identity provider unavailable")
)

func ErrIdentityNotFound() *errx.Error      { return ErrRegistry.New(CodeIdentityNotFound) }
func ErrIdentityExists() *errx.Error        { return ErrRegistry.New(CodeIdentityExists) }
func ErrDispatchFailed() *errx.Error        { return ErrRegistry.New(CodeDispatchFailed) }
func ErrDispatchRejected() *errx.Error      { return ErrRegistry.New(CodeDispatchRejected) }
func ErrInvalidCode() *errx.Error           { return ErrRegistry.New(CodeInvalidCode) }
func ErrTokenGenerationFailed() *errx.Error { return ErrRegistry.New(CodeTokenGenerationFailed) }
func ErrTokenValidationFailed() *errx.Error { return ErrRegistry.New(CodeTokenValidationFailed) }
func ErrStoreFailed() *errx.Error           { return ErrRegistry.New(CodeStoreFailed) }
func ErrProviderUnavailable() *errx.Error   { return ErrRegistry.New(CodeProviderUnavailable) }
