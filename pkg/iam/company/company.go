package company

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Company is the hiring organization an employer belongs to.
type Company struct {
	ID        kernel.CompanyID `db:"id" json:"id"`
	Name      string           `db:"name" json:"name"`
	Website   *string          `db:"website" json:"website,omitempty"`
	Industry  *string          `db:"industry" json:"industry,omitempty"`
	Size      *string          `db:"size" json:"size,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// Size buckets accepted by the onboarding form.
const (
	Size1To10     = "1-10"
	Size11To50    = "11-50"
	Size51To200   = "51-200"
	Size201To1000 = "201-1000"
	Size1000Plus  = "1000+"
)

var Sizes = []any{Size1To10, Size11To50, Size51To200, Size201To1000, Size1000Plus}

var ErrRegistry = errx.NewRegistry("COMPANY")

var (
	CodeCompanyNotFound    = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Company not found")
	CodeAlreadyLinked      = ErrRegistry.Register("ALREADY_LINKED", errx.TypeConflict, http.StatusConflict, "Employer already belongs to a company")
	CodeInvalidCompanyData = ErrRegistry.Register("INVALID_DATA", errx.TypeValidation, http.StatusBadRequest, "Invalid company data")
)

func ErrCompanyNotFound() *errx.Error    { return ErrRegistry.New(CodeCompanyNotFound) }
func ErrAlreadyLinked() *errx.Error      { return ErrRegistry.New(CodeAlreadyLinked) }
func ErrInvalidCompanyData() *errx.Error { return ErrRegistry.New(CodeInvalidCompanyData) }
