package otp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	"trainer-booking/internal/http-server/respond"
	"trainer-booking/pkg/response"

	"github.com/go-chi/chi/middleware"
)

type AccessLinkSender interface {
	SendAccessLink(ctx context.Context, email string) error
}

type Response struct {
	Message string `json:"message"`
}

const accepted = "if the address is registered, an access link has been sent"

// New answers 202 for unknown addresses too, so the endpoint does not reveal
// which email is the administrator's.
func New(log *slog.Logger, sender AccessLinkSender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.otp.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.AccessRequest
		if !respond.Decode(w, r, log, &req) {
			return
		}

		err := sender.SendAccessLink(r.Context(), req.Email)
		if err != nil && !errors.Is(err, response.ErrUnauthorized) {
			respond.Error(w, r, log, err, "failed to issue access link")
			return
		}

		if err != nil {
			log.Info("access requested for a non-admin address")
		} else {
			log.Info("access link issued")
		}

		respond.JSON(w, r, http.StatusAccepted, Response{Message: accepted})
	}
}
