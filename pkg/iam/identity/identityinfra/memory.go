package identityinfra

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// InMemoryIdentityRepository is a process-local identity.Repository.
type InMemoryIdentityRepository struct {
	mu      sync.Mutex
	byID    map[kernel.SubjectID]identity.Identity
	byEmail map[string]kernel.SubjectID
}

func NewInMemoryIdentityRepository() *InMemoryIdentityRepository {
	return &InMemoryIdentityRepository{
		byID:    make(map[kernel.SubjectID]identity.Identity),
		byEmail: make(map[string]kernel.SubjectID),
	}
}

var _ identity.Repository = (*InMemoryIdentityRepository)(nil)

func (r *InMemoryIdentityRepository) FindByEmail(_ context.Context, email string) (*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[kernel.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	ident := cloneIdentity(r.byID[id])
	return &ident, nil
}

func (r *InMemoryIdentityRepository) FindByID(_ context.Context, id kernel.SubjectID) (*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok {
		return nil, identity.ErrIdentityNotFound()
	}
	ident = cloneIdentity(ident)
	return &ident, nil
}

func (r *InMemoryIdentityRepository) Create(_ context.Context, ident identity.Identity) (*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident.Email = kernel.NormalizeEmail(ident.Email)
	if _, taken := r.byEmail[ident.Email]; taken {
		return nil, identity.ErrIdentityExists()
	}
	if ident.Metadata == nil {
		ident.Metadata = identity.Metadata{}
	}
	r.byID[ident.SubjectID] = cloneIdentity(ident)
	r.byEmail[ident.Email] = ident.SubjectID
	return &ident, nil
}

func (r *InMemoryIdentityRepository) UpdateMetadata(_ context.Context, id kernel.SubjectID, metadata identity.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok {
		return identity.ErrIdentityNotFound()
	}
	ident.Metadata = metadata
	ident.UpdatedAt = time.Now()
	r.byID[id] = cloneIdentity(ident)
	return nil
}

func (r *InMemoryIdentityRepository) MarkEmailVerified(_ context.Context, id kernel.SubjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok {
		return identity.ErrIdentityNotFound()
	}
	ident.EmailVerified = true
	ident.UpdatedAt = time.Now()
	r.byID[id] = ident
	return nil
}

func cloneIdentity(in identity.Identity) identity.Identity {
	out := in
	if in.Metadata != nil {
		out.Metadata = make(identity.Metadata, len(in.Metadata))
		for k, v := range in.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// InMemorySessionRepository is a process-local identity.SessionRepository.
type InMemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]identity.Session
	now      func() time.Time
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		sessions: make(map[string]identity.Session),
		now:      time.Now,
	}
}

var _ identity.SessionRepository = (*InMemorySessionRepository)(nil)

func (r *InMemorySessionRepository) Save(_ context.Context, s identity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *InMemorySessionRepository) Find(_ context.Context, sessionID string) (*identity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if s.IsExpired(r.now()) {
		delete(r.sessions, sessionID)
		return nil, nil
	}
	return &s, nil
}

func (r *InMemorySessionRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

// Len reports the number of stored sessions.
func (r *InMemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
