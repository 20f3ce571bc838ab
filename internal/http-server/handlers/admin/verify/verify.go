package verify

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	"trainer-booking/internal/http-server/respond"

	"github.com/go-chi/chi/middleware"
)

type LoginVerifier interface {
	Login(ctx context.Context, email, token string) (*api.SessionResponse, error)
}

type Response struct {
	Session *api.SessionResponse `json:"session"`
}

func New(log *slog.Logger, verifier LoginVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.VerifyRequest
		if !respond.Decode(w, r, log, &req) {
			return
		}

		session, err := verifier.Login(r.Context(), req.Email, req.Token)
		if err != nil {
			respond.Error(w, r, log, err, "failed to verify access token")
			return
		}

		log.Info("admin logged in", slog.Time("expires_at", session.ExpiresAt))

		respond.JSON(w, r, http.StatusOK, Response{Session: session})
	}
}
