package companyinfra

import (
	"context"
	"sync"

	"github.com/Abraxas-365/relay/pkg/iam/company"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// InMemoryCompanyRepository is a process-local company.Repository.
type InMemoryCompanyRepository struct {
	mu        sync.Mutex
	companies map[kernel.CompanyID]company.Company
}

func NewInMemoryCompanyRepository() *InMemoryCompanyRepository {
	return &InMemoryCompanyRepository{companies: make(map[kernel.CompanyID]company.Company)}
}

var _ company.Repository = (*InMemoryCompanyRepository)(nil)

func (r *InMemoryCompanyRepository) Create(_ context.Context, c company.Company) (*company.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies[c.ID] = c
	return &c, nil
}

func (r *InMemoryCompanyRepository) FindByID(_ context.Context, id kernel.CompanyID) (*company.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return nil, company.ErrCompanyNotFound()
	}
	return &c, nil
}
