package errx

import "net/http"

// Type is the broad category of an error. Unregistered errors derive their
// HTTP status from it.
type Type string

const (
	TypeInternal      Type = "INTERNAL"
	TypeValidation    Type = "VALIDATION"
	TypeAuthorization Type = "AUTHORIZATION"
	TypeNotFound      Type = "NOT_FOUND"
	TypeConflict      Type = "CONFLICT"
	TypeBusiness      Type = "BUSINESS"
	TypeExternal      Type = "EXTERNAL"
)

var typeStatus = map[Type]int{
	TypeValidation:    http.StatusBadRequest,
	TypeAuthorization: http.StatusUnauthorized,
	TypeNotFound:      http.StatusNotFound,
	TypeConflict:      http.StatusConflict,
	TypeBusiness:      http.StatusUnprocessableEntity,
	TypeExternal:      http.StatusBadGateway,
	TypeInternal:      http.StatusInternalServerError,
}

func (t Type) String() string {
	return string(t)
}

// HTTPStatus is the default status for errors of this type.
func (t Type) HTTPStatus() int {
	if s, ok := typeStatus[t]; ok {
		return s
	}
	return http.StatusInternalServerError
}
