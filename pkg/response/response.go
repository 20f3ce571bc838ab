package response

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST     ErrCode = "REQUEST_FAILED"
	BAD_REQUEST        ErrCode = "FAILED_TO_DECODE"
	VALIDATION_FAILED  ErrCode = "VALIDATION_FAILED"
	NOT_FOUND          ErrCode = "NOT_FOUND"
	LOCKED             ErrCode = "LOCKED"
	CONFLICT           ErrCode = "CONFLICT"
	SLOT_NOT_AVAILABLE ErrCode = "SLOT_NOT_AVAILABLE"
	UNAUTHORIZED       ErrCode = "UNAUTHORIZED"
	FORBIDDEN          ErrCode = "FORBIDDEN"
	RATE_LIMITED       ErrCode = "RATE_LIMITED"
)

var (
	ErrBadRequest       = errors.New("bad request")
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("resource not found")
	ErrLocked           = errors.New("resource is locked")
	ErrConflict         = errors.New("conflict")
	ErrSlotNotAvailable = errors.New("slot is not available")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrStorage          = errors.New("storage failure")
)

// FieldErrors is a validation failure with per-field messages. It matches
// ErrValidation under errors.Is.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	if len(f) == 0 {
		return ErrValidation.Error()
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, f[k]))
	}

	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

func (f FieldErrors) Unwrap() error {
	return ErrValidation
}

func Error(code, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    code,
			Message: msg,
		},
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	return Validation(FromValidator(errs))
}

func Validation(fields FieldErrors) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    string(VALIDATION_FAILED),
			Message: "request validation failed",
			Fields:  fields,
		},
	}
}

// FromValidator converts validator output into FieldErrors keyed by the
// json field name.
func FromValidator(errs validator.ValidationErrors) FieldErrors {
	fields := make(FieldErrors, len(errs))

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			fields[err.Field()] = "field is required"
		case "email":
			fields[err.Field()] = "must be a valid email address"
		case "uuid", "uuid4":
			fields[err.Field()] = "must be a valid uuid"
		case "datetime":
			fields[err.Field()] = fmt.Sprintf("must match layout %s", err.Param())
		case "oneof":
			fields[err.Field()] = fmt.Sprintf("must be one of [%s]", err.Param())
		case "min":
			fields[err.Field()] = fmt.Sprintf("must be at least %s", err.Param())
		case "max":
			fields[err.Field()] = fmt.Sprintf("must be at most %s", err.Param())
		default:
			fields[err.Field()] = "field is invalid"
		}
	}

	return fields
}
