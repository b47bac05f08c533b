package employerinfra

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/relay/pkg/iam/employer"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// InMemoryEmployerRepository is a process-local employer.Repository that
// enforces the same email uniqueness as the database.
type InMemoryEmployerRepository struct {
	mu      sync.Mutex
	byID    map[kernel.EmployerID]employer.Employer
	byEmail map[string]kernel.EmployerID

	// InsertErr, when set, is returned by Insert instead of storing.
	InsertErr error
	// FindErr, when set, is returned by FindByEmail.
	FindErr error
}

func NewInMemoryEmployerRepository() *InMemoryEmployerRepository {
	return &InMemoryEmployerRepository{
		byID:    make(map[kernel.EmployerID]employer.Employer),
		byEmail: make(map[string]kernel.EmployerID),
	}
}

var _ employer.Repository = (*InMemoryEmployerRepository)(nil)

func (r *InMemoryEmployerRepository) FindByEmail(_ context.Context, email string) (*employer.Employer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	id, ok := r.byEmail[kernel.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	e := r.byID[id]
	return &e, nil
}

func (r *InMemoryEmployerRepository) FindByID(_ context.Context, id kernel.EmployerID) (*employer.Employer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, employer.ErrEmployerNotFound()
	}
	return &e, nil
}

func (r *InMemoryEmployerRepository) Insert(_ context.Context, e employer.Employer) (*employer.Employer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return nil, r.InsertErr
	}
	e.Email = kernel.NormalizeEmail(e.Email)
	if _, taken := r.byEmail[e.Email]; taken {
		return nil, employer.ErrEmailTaken()
	}
	if _, taken := r.byID[e.ID]; taken {
		return nil, employer.ErrEmailTaken()
	}
	r.byID[e.ID] = e
	r.byEmail[e.Email] = e.ID
	return &e, nil
}

func (r *InMemoryEmployerRepository) Update(_ context.Context, id kernel.EmployerID, patch employer.Patch) (*employer.Employer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, employer.ErrEmployerNotFound()
	}
	patch.Apply(&e, time.Now())
	r.byID[id] = e
	return &e, nil
}

// Count reports the number of stored employers.
func (r *InMemoryEmployerRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
