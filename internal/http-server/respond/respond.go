// Package respond holds the JSON plumbing shared by every handler: body
// decoding with validation and the mapping from service errors to status
// codes.
package respond

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"trainer-booking/pkg/response"
	"trainer-booking/pkg/sl"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields under their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Decode reads a JSON body into dst and validates its struct tags. On
// failure it writes the error response and returns false.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		JSON(w, r, http.StatusBadRequest, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Info("invalid request", sl.Err(err))
			JSON(w, r, http.StatusBadRequest, response.ValidationError(verrs))
			return false
		}
		log.Error("failed to validate request", sl.Err(err))
		JSON(w, r, http.StatusBadRequest, response.Error(string(response.BAD_REQUEST), "invalid request"))
		return false
	}

	return true
}

func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// Error classifies err and writes the matching status and error body. msg
// is the message used for unexpected failures.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, msg string) {
	var fields response.FieldErrors

	switch {
	case errors.As(err, &fields):
		log.Info("validation failed", sl.Err(err))
		JSON(w, r, http.StatusBadRequest, response.Validation(fields))
	case errors.Is(err, response.ErrValidation), errors.Is(err, response.ErrBadRequest):
		log.Info("bad request", sl.Err(err))
		JSON(w, r, http.StatusBadRequest, response.Error(string(response.VALIDATION_FAILED), "request validation failed"))
	case errors.Is(err, response.ErrUnauthorized):
		log.Info("unauthorized")
		JSON(w, r, http.StatusUnauthorized, response.Error(string(response.UNAUTHORIZED), "unauthorized"))
	case errors.Is(err, response.ErrForbidden):
		log.Info("forbidden")
		JSON(w, r, http.StatusForbidden, response.Error(string(response.FORBIDDEN), "not allowed to modify this appointment"))
	case errors.Is(err, response.ErrNotFound):
		log.Info("resource not found")
		JSON(w, r, http.StatusNotFound, response.Error(string(response.NOT_FOUND), "resource not found"))
	case errors.Is(err, response.ErrSlotNotAvailable):
		log.Info("slot is not available")
		JSON(w, r, http.StatusConflict, response.Error(string(response.SLOT_NOT_AVAILABLE), "slot is not available"))
	case errors.Is(err, response.ErrConflict):
		log.Info("conflict", sl.Err(err))
		JSON(w, r, http.StatusConflict, response.Error(string(response.CONFLICT), "resource is in use"))
	case errors.Is(err, response.ErrLocked):
		log.Info("resource is locked")
		JSON(w, r, http.StatusLocked, response.Error(string(response.LOCKED), "resource is locked"))
	case errors.Is(err, response.ErrRateLimited):
		log.Warn("rate limit exceeded")
		JSON(w, r, http.StatusTooManyRequests, response.Error(string(response.RATE_LIMITED), "too many requests"))
	default:
		log.Error(msg, sl.Err(err))
		JSON(w, r, http.StatusInternalServerError, response.Error(string(response.FAILED_REQUEST), msg))
	}
}
