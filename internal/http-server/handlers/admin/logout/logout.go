package logout

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/internal/http-server/respond"
	"trainer-booking/pkg/middleware/adminAuth"

	"github.com/go-chi/chi/middleware"
)

type SessionRevoker interface {
	Logout(ctx context.Context, token string) error
}

func New(log *slog.Logger, revoker SessionRevoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := revoker.Logout(r.Context(), adminAuth.BearerToken(r)); err != nil {
			respond.Error(w, r, log, err, "failed to log out")
			return
		}

		log.Info("admin logged out")
		w.WriteHeader(http.StatusNoContent)
	}
}
