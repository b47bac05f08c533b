package auth

import (
	"errors"
	"strings"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/Abraxas-365/relay/pkg/ptrx"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// SignupRequest is the signup form.
type SignupRequest struct {
	Email         string            `json:"email"`
	FullName      string            `json:"full_name"`
	Phone         *string           `json:"phone,omitempty"`
	JobRole       *string           `json:"job_role,omitempty"`
	CompanyID     *kernel.CompanyID `json:"company_id,omitempty"`
	CreateCompany bool              `json:"create_company"`
}

// Validate will validate the payload
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.JobRole, validation.NilOrNotEmpty, validation.Length(1, 100)),
	)
}

// Normalize trims and lower-cases the fields, validates them and rewrites the
// phone number to E.164. region is used for numbers without a country code.
func (r *SignupRequest) Normalize(region string) error {
	r.Email = kernel.NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Phone = ptrx.StringOrNil(ptrx.StringValue(r.Phone))
	r.JobRole = ptrx.StringOrNil(ptrx.StringValue(r.JobRole))
	if r.CompanyID != nil && r.CompanyID.IsEmpty() {
		r.CompanyID = nil
	}

	if err := r.Validate(); err != nil {
		return validationFailed(err)
	}
	if r.CreateCompany && r.CompanyID != nil {
		return validationFailed(validation.Errors{
			"company_id": errors.New("must be empty when create_company is set"),
		})
	}

	if r.Phone != nil {
		e164, err := NormalizePhone(*r.Phone, region)
		if err != nil {
			return validationFailed(validation.Errors{"phone": err})
		}
		r.Phone = &e164
	}
	return nil
}

// EmailRequest is the body of login and resend.
type EmailRequest struct {
	Email string `json:"email"`
}

// Validate will validate the payload
func (r EmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
	)
}

func (r *EmailRequest) Normalize() error {
	r.Email = kernel.NormalizeEmail(r.Email)
	if err := r.Validate(); err != nil {
		return validationFailed(err)
	}
	return nil
}

// VerifyRequest is the code submission.
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Validate will validate the payload
func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(4, 10), is.Digit),
	)
}

func (r *VerifyRequest) Normalize() error {
	r.Email = kernel.NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
	if err := r.Validate(); err != nil {
		return validationFailed(err)
	}
	return nil
}

// NormalizePhone parses raw and formats it as E.164.
func NormalizePhone(raw, region string) (string, error) {
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", errors.New("must be a valid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("must be a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func validationFailed(err error) *errx.Error {
	e := ErrValidationFailed().WithCause(err)

	var fields validation.Errors
	if errors.As(err, &fields) {
		details := make(map[string]string, len(fields))
		for name, fieldErr := range fields {
			if fieldErr != nil {
				details[name] = fieldErr.Error()
			}
		}
		return e.WithDetail("fields", details)
	}
	return e.WithDetail("reason", err.Error())
}
