package identity

import (
	"context"

	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Provider is the passwordless identity provider: it owns emails, codes and
// sessions, and knows nothing about employer profiles.
type Provider interface {
	// DispatchCode issues a fresh code for email and sends it. Only the most
	// recently dispatched code is accepted afterwards.
	DispatchCode(ctx context.Context, email string, opts DispatchOptions) error

	// VerifyCode accepts or rejects code and opens a session when accepted.
	// Rejections carry CodeInvalidCode.
	VerifyCode(ctx context.Context, email, code string) (*Verification, error)

	// CurrentSession returns nil, nil when token does not name a live session.
	CurrentSession(ctx context.Context, token string) (*Identity, error)

	// EndSession is idempotent.
	EndSession(ctx context.Context, token string) error
}

// Repository defines the contract for identity persistence
type Repository interface {
	// FindByEmail returns nil, nil when the email is unknown.
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id kernel.SubjectID) (*Identity, error)
	// Create returns ErrIdentityExists when the email is taken.
	Create(ctx context.Context, ident Identity) (*Identity, error)
	UpdateMetadata(ctx context.Context, id kernel.SubjectID, metadata Metadata) error
	MarkEmailVerified(ctx context.Context, id kernel.SubjectID) error
}

// SessionRepository defines the contract for session persistence
type SessionRepository interface {
	Save(ctx context.Context, session Session) error
	// Find returns nil, nil when the session is unknown or expired.
	Find(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// TokenService signs and validates session tokens
type TokenService interface {
	IssueSessionToken(session Session) (string, error)
	ValidateSessionToken(token string) (*TokenClaims, error)
}
