package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/internal/http-server/respond"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

type AppointmentCanceller interface {
	CancelAppointment(ctx context.Context, id string) error
}

func New(log *slog.Logger, canceller AppointmentCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.cancel.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		if err := canceller.CancelAppointment(r.Context(), id); err != nil {
			respond.Error(w, r, log, err, "failed to cancel appointment")
			return
		}

		log.Info("appointment cancelled", slog.String("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
