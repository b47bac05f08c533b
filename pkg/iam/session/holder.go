package session

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/company"
	"github.com/Abraxas-365/relay/pkg/iam/employer"
	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/Abraxas-365/relay/pkg/logx"
)

// Session is the authenticated view of a caller: the employer profile and,
// once onboarding is complete, its company.
type Session struct {
	Token    string            `json:"-"`
	Employer employer.Employer `json:"employer"`
	Company  *company.Company  `json:"company,omitempty"`
	cachedAt time.Time
}

// AuthContext projects the session onto the request context type.
func (s *Session) AuthContext() *kernel.AuthContext {
	return &kernel.AuthContext{
		EmployerID:   s.Employer.ID,
		CompanyID:    s.Employer.CompanyID,
		Email:        s.Employer.Email,
		Name:         s.Employer.FullName,
		SessionToken: s.Token,
	}
}

// Holder caches hydrated sessions by token. Cached entries are served only
// while the provider still reports the session live, so a logout on any
// instance ends them at once. Profiles are re-read after the cache TTL, so
// deactivated employers lose their session within that window.
type Holder struct {
	provider  identity.Provider
	employers employer.Repository
	companies company.Repository
	ttl       time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]*Session
}

func NewHolder(provider identity.Provider, employers employer.Repository, companies company.Repository, ttl time.Duration) *Holder {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Holder{
		provider:  provider,
		employers: employers,
		companies: companies,
		ttl:       ttl,
		now:       time.Now,
		entries:   make(map[string]*Session),
	}
}

// WithClock replaces the holder clock. Used by tests.
func (h *Holder) WithClock(now func() time.Time) *Holder {
	h.now = now
	return h
}

// Set registers a session established by a verification.
func (h *Holder) Set(token string, emp employer.Employer, comp *company.Company) *Session {
	s := &Session{Token: token, Employer: emp, Company: comp, cachedAt: h.now()}
	h.mu.Lock()
	h.entries[token] = s
	h.mu.Unlock()
	return s
}

// Get returns the session for token, hydrating it on a cache miss.
// It returns nil, nil when the token does not name a usable session.
func (h *Holder) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	h.mu.RLock()
	s, ok := h.entries[token]
	h.mu.RUnlock()
	if !ok || h.now().Sub(s.cachedAt) >= h.ttl {
		return h.Hydrate(ctx, token)
	}

	ident, err := h.provider.CurrentSession(ctx, token)
	if err != nil {
		return nil, errx.Wrap(err, "failed to resolve provider session", errx.TypeInternal)
	}
	if ident == nil {
		h.Clear(token)
		return nil, nil
	}
	return s, nil
}

// Hydrate rebuilds the session from the identity provider and repositories.
func (h *Holder) Hydrate(ctx context.Context, token string) (*Session, error) {
	h.Clear(token)

	ident, err := h.provider.CurrentSession(ctx, token)
	if err != nil {
		return nil, errx.Wrap(err, "failed to resolve provider session", errx.TypeInternal)
	}
	if ident == nil {
		return nil, nil
	}

	emp, err := h.employers.FindByEmail(ctx, ident.Email)
	if err != nil {
		return nil, errx.Wrap(err, "failed to load employer for session", errx.TypeInternal)
	}
	if emp == nil || !emp.CanSignIn() || emp.ID.String() != ident.SubjectID.String() {
		logx.WithFields(logx.Fields{
			"subject_id":  ident.SubjectID,
			"has_profile": emp != nil,
		}).Debug("provider session has no usable employer profile")
		return nil, nil
	}

	var comp *company.Company
	if emp.HasCompany() {
		comp, err = h.companies.FindByID(ctx, *emp.CompanyID)
		if err != nil && !errx.IsCode(err, company.CodeCompanyNotFound) {
			return nil, errx.Wrap(err, "failed to load company for session", errx.TypeInternal)
		}
	}

	return h.Set(token, *emp, comp), nil
}

// Refresh drops the cached entry and hydrates again.
func (h *Holder) Refresh(ctx context.Context, token string) (*Session, error) {
	return h.Hydrate(ctx, token)
}

// Clear forgets token. Clearing an unknown token is a no-op.
func (h *Holder) Clear(token string) {
	h.mu.Lock()
	delete(h.entries, token)
	h.mu.Unlock()
}
