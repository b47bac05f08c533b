package companysrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/iam/company"
	"github.com/Abraxas-365/relay/pkg/iam/employer"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/Abraxas-365/relay/pkg/ptrx"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

// CreateCompanyRequest is the onboarding company form.
type CreateCompanyRequest struct {
	Name     string  `json:"name"`
	Website  *string `json:"website,omitempty"`
	Industry *string `json:"industry,omitempty"`
	Size     *string `json:"size,omitempty"`
}

// Validate will validate the payload
func (r CreateCompanyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 200)),
		validation.Field(&r.Website, validation.NilOrNotEmpty, is.URL, validation.Length(0, 500)),
		validation.Field(&r.Industry, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&r.Size, validation.NilOrNotEmpty, validation.In(company.Sizes...)),
	)
}

// CompanyService completes onboarding by creating the employer's company.
type CompanyService struct {
	companies company.Repository
	employers employer.Repository
	now       func() time.Time
}

func NewCompanyService(companies company.Repository, employers employer.Repository) *CompanyService {
	return &CompanyService{
		companies: companies,
		employers: employers,
		now:       time.Now,
	}
}

// CreateForEmployer creates a company and links it to the employer. An
// employer already linked to a company is rejected.
func (s *CompanyService) CreateForEmployer(ctx context.Context, employerID kernel.EmployerID, req CreateCompanyRequest) (*company.Company, *employer.Employer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return nil, nil, company.ErrInvalidCompanyData().WithCause(err).WithDetail("fields", err.Error())
	}

	emp, err := s.employers.FindByID(ctx, employerID)
	if err != nil {
		return nil, nil, err
	}
	if emp.HasCompany() {
		return nil, nil, company.ErrAlreadyLinked().WithDetail("company_id", emp.CompanyID.String())
	}

	now := s.now()
	created, err := s.companies.Create(ctx, company.Company{
		ID:        kernel.NewCompanyID(uuid.NewString()),
		Name:      req.Name,
		Website:   ptrx.StringOrNil(ptrx.StringValue(req.Website)),
		Industry:  ptrx.StringOrNil(ptrx.StringValue(req.Industry)),
		Size:      ptrx.StringOrNil(ptrx.StringValue(req.Size)),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, nil, errx.Wrap(err, "failed to create company", errx.TypeInternal)
	}

	linked, err := s.employers.Update(ctx, employerID, employer.Patch{CompanyID: &created.ID})
	if err != nil {
		return nil, nil, errx.Wrap(err, "failed to link company", errx.TypeInternal).
			WithDetail("company_id", created.ID.String())
	}

	logx.WithFields(logx.Fields{
		"employer_id": employerID,
		"company_id":  created.ID,
	}).Info("company linked to employer")

	return created, linked, nil
}
